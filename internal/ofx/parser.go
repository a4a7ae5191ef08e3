// Package ofx reads OFX/QFX bank and credit card statements and turns their
// debits into expenses.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// importNamespace derives stable expense ids from statement transaction ids.
var importNamespace = uuid.MustParse("b3f6e0a2-58c4-4d71-9e2f-7a1d64c0b9e5")

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Draft is a statement debit not yet recorded in the ledger.
type Draft struct {
	Date      time.Time
	Amount    decimal.Decimal
	FitID     string
	Name      string
	Currency  string
	AccountID string
	Type      string
}

// ExpenseID is derived from the account and the bank's transaction id, so
// importing the same statement twice yields the same ids.
func (d Draft) ExpenseID() string {
	return uuid.NewSHA1(importNamespace, []byte(d.AccountID+"/"+d.FitID)).String()
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be INFO, WARN or ERROR.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Some SGML exports drop the closing bracket of a bare opening tag.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file and returns its debits in statement order.
// Credits (deposits, refunds, payments to a card) are skipped.
func (p *Parser) ParseFile(_ context.Context, reader io.Reader) ([]Draft, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var drafts []Draft
	var bankStmts, ccStmts, skipped int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		d, s := p.collect(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID), curDef(stmt.CurDef))
		drafts = append(drafts, d...)
		skipped += s
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		ccStmts++
		d, s := p.collect(stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID), curDef(stmt.CurDef))
		drafts = append(drafts, d...)
		skipped += s
	}

	slog.Info("Parsed OFX file",
		"debits", len(drafts),
		"skipped_credits", skipped,
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return drafts, nil
}

func curDef(sym ofxgo.CurrSymbol) string {
	code := sym.String()
	if code == "" || code == "XXX" {
		return ""
	}
	return code
}

func (p *Parser) collect(txns []ofxgo.Transaction, accountID, currency string) ([]Draft, int) {
	var drafts []Draft
	skipped := 0
	for _, tx := range txns {
		draft, ok := p.convertTransaction(tx, accountID, currency)
		if !ok {
			skipped++
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts, skipped
}

// convertTransaction turns an OFX debit into a draft. OFX uses negative amounts
// for debits; anything else is reported as not convertible.
func (p *Parser) convertTransaction(tx ofxgo.Transaction, accountID, currency string) (Draft, bool) {
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(4))
	if err != nil || !amount.IsNegative() {
		return Draft{}, false
	}

	return Draft{
		FitID:     string(tx.FiTID),
		Date:      tx.DtPosted.Time,
		Name:      p.extractMerchantName(tx),
		Amount:    amount.Neg(),
		Currency:  currency,
		AccountID: accountID,
		Type:      fmt.Sprintf("%v", tx.TrnType),
	}, true
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Drop a leading "MM/DD " date.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}

	upperName := strings.ToUpper(name)
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}

// GetAccounts extracts unique account IDs from the OFX file.
func (p *Parser) GetAccounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var accounts []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			accounts = append(accounts, id)
		}
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(string(stmt.BankAcctFrom.AcctID))
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(string(stmt.CCAcctFrom.AcctID))
		}
	}

	return accounts, nil
}
