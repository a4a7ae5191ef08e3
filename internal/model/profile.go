package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency of a freshly created profile.
const DefaultCurrency = "USD"

// DefaultProfileName is the display name of a freshly created profile.
const DefaultProfileName = "User"

// ReportingPeriod selects which budget limit is active for summaries.
type ReportingPeriod string

const (
	// PeriodDaily compares spending within the same calendar day.
	PeriodDaily ReportingPeriod = "daily"
	// PeriodMonthly compares spending within the same calendar month.
	PeriodMonthly ReportingPeriod = "monthly"
	// PeriodYearly compares spending within the same calendar year.
	PeriodYearly ReportingPeriod = "yearly"
)

// ReportingPeriods lists the valid periods in display order.
var ReportingPeriods = []ReportingPeriod{PeriodDaily, PeriodMonthly, PeriodYearly}

// ParseReportingPeriod parses the text form of a reporting period.
func ParseReportingPeriod(s string) (ReportingPeriod, error) {
	p := ReportingPeriod(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PeriodDaily, PeriodMonthly, PeriodYearly:
		return p, nil
	default:
		return "", fmt.Errorf("invalid reporting period %q: must be daily, monthly or yearly", s)
	}
}

// Contains reports whether t falls in the same period as ref, compared in ref's location.
func (p ReportingPeriod) Contains(ref, t time.Time) bool {
	t = t.In(ref.Location())
	switch p {
	case PeriodDaily:
		return t.Year() == ref.Year() && t.YearDay() == ref.YearDay()
	case PeriodMonthly:
		return t.Year() == ref.Year() && t.Month() == ref.Month()
	case PeriodYearly:
		return t.Year() == ref.Year()
	default:
		return false
	}
}

// BudgetSettings holds optional spending limits per period. A nil limit means none is set.
type BudgetSettings struct {
	DailyLimit   *decimal.Decimal `json:"daily_limit"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit"`
	YearlyLimit  *decimal.Decimal `json:"yearly_limit"`
	Period       ReportingPeriod  `json:"period"`
}

// DefaultBudgetSettings returns settings with no limits and the monthly period selected.
func DefaultBudgetSettings() BudgetSettings {
	return BudgetSettings{Period: PeriodMonthly}
}

// Limit returns the limit configured for p, or nil.
func (b BudgetSettings) Limit(p ReportingPeriod) *decimal.Decimal {
	switch p {
	case PeriodDaily:
		return b.DailyLimit
	case PeriodMonthly:
		return b.MonthlyLimit
	case PeriodYearly:
		return b.YearlyLimit
	default:
		return nil
	}
}

// SetLimit sets or clears (nil) the limit for p.
func (b *BudgetSettings) SetLimit(p ReportingPeriod, limit *decimal.Decimal) {
	switch p {
	case PeriodDaily:
		b.DailyLimit = limit
	case PeriodMonthly:
		b.MonthlyLimit = limit
	case PeriodYearly:
		b.YearlyLimit = limit
	}
}

// ActiveLimit returns the limit for the selected reporting period.
func (b BudgetSettings) ActiveLimit() *decimal.Decimal {
	return b.Limit(b.Period)
}

// Profile is the single per-installation user profile.
type Profile struct {
	Name            string         `json:"name"`
	Currency        string         `json:"currency"`
	ProfileImage    []byte         `json:"profile_image,omitempty"`
	BackgroundImage []byte         `json:"background_image,omitempty"`
	Budget          BudgetSettings `json:"budget"`
}

// DefaultProfile returns the profile created on first run and on reset.
func DefaultProfile() Profile {
	return Profile{
		Name:     DefaultProfileName,
		Currency: DefaultCurrency,
		Budget:   DefaultBudgetSettings(),
	}
}

// Clone returns a deep copy so callers cannot alias image buffers or limits.
func (p Profile) Clone() Profile {
	out := p
	if p.ProfileImage != nil {
		out.ProfileImage = append([]byte(nil), p.ProfileImage...)
	}
	if p.BackgroundImage != nil {
		out.BackgroundImage = append([]byte(nil), p.BackgroundImage...)
	}
	out.Budget.DailyLimit = cloneDecimal(p.Budget.DailyLimit)
	out.Budget.MonthlyLimit = cloneDecimal(p.Budget.MonthlyLimit)
	out.Budget.YearlyLimit = cloneDecimal(p.Budget.YearlyLimit)
	return out
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
