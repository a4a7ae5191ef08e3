// Package alerts publishes budget notifications when spending crosses the
// active reporting period's limit.
package alerts

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/store"
)

// BudgetAlert is published when spend first exceeds the active limit.
type BudgetAlert struct {
	Timestamp   time.Time             `json:"timestamp"`
	Limit       decimal.Decimal       `json:"limit"`
	Spent       decimal.Decimal       `json:"spent"`
	Overspent   decimal.Decimal       `json:"overspent"`
	ProfileName string                `json:"profile_name"`
	Currency    string                `json:"currency"`
	Period      model.ReportingPeriod `json:"period"`
}

// NewBudgetAlert builds an alert from a budget status. The status must have a limit.
func NewBudgetAlert(profile model.Profile, status store.BudgetStatus, at time.Time) *BudgetAlert {
	alert := &BudgetAlert{
		Timestamp:   at,
		Spent:       status.Spent,
		ProfileName: profile.Name,
		Currency:    profile.Currency,
		Period:      status.Period,
	}
	if status.Limit != nil {
		alert.Limit = *status.Limit
		alert.Overspent = status.Spent.Sub(*status.Limit)
	}
	return alert
}

// ToJSON converts the alert to JSON bytes.
func (a *BudgetAlert) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// BudgetAlertFromJSON decodes an alert.
func BudgetAlertFromJSON(data []byte) (*BudgetAlert, error) {
	var alert BudgetAlert
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}
