// Package ofx reads bank and credit card statements exported as OFX/QFX
// and serves them as a read-only ledger, for dry runs without API access.
package ofx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
)

// ErrReadOnly is returned by every write on a statement ledger.
var ErrReadOnly = errors.New("ofx ledger is read-only")

var (
	severityFix = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFix      = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocess fixes formatting issues some banks ship in their exports.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityFix.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFix.ReplaceAllString(content, "$1>")
}

// Parse reads one statement file into ledger transactions.
func Parse(r io.Reader) ([]*ledger.Transaction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var out []*ledger.Transaction
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		acct := ledger.Account{ID: string(stmt.BankAcctFrom.AcctID), DisplayName: string(stmt.BankAcctFrom.AcctID)}
		txs, err := convertAll(stmt.BankTranList.Transactions, acct)
		if err != nil {
			return nil, err
		}
		out = append(out, txs...)
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		acct := ledger.Account{ID: string(stmt.CCAcctFrom.AcctID), DisplayName: string(stmt.CCAcctFrom.AcctID)}
		txs, err := convertAll(stmt.BankTranList.Transactions, acct)
		if err != nil {
			return nil, err
		}
		out = append(out, txs...)
	}
	return out, nil
}

func convertAll(txs []ofxgo.Transaction, acct ledger.Account) ([]*ledger.Transaction, error) {
	out := make([]*ledger.Transaction, 0, len(txs))
	for _, tx := range txs {
		t, err := convert(tx, acct)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func convert(tx ofxgo.Transaction, acct ledger.Account) (*ledger.Transaction, error) {
	amount, err := currency.Parse(tx.TrnAmt.FloatString(6))
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", tx.FiTID, err)
	}

	name := strings.TrimSpace(string(tx.Name))
	merchant := name
	if tx.Payee != nil && tx.Payee.Name != "" {
		merchant = strings.TrimSpace(string(tx.Payee.Name))
	}

	posted := tx.DtPosted.Time
	return &ledger.Transaction{
		ID:        string(tx.FiTID),
		Amount:    amount,
		Date:      time.Date(posted.Year(), posted.Month(), posted.Day(), 0, 0, 0, 0, time.UTC),
		Merchant:  ledger.Merchant{Name: merchant},
		PlaidName: name,
		Notes:     string(tx.Memo),
		Account:   acct,
	}, nil
}

// Client serves transactions parsed from statement files. It has no
// categories and rejects every write.
type Client struct {
	paths  []string
	logger *slog.Logger
}

var _ ledger.Client = (*Client)(nil)

// NewClient creates a ledger over the given statement files.
func NewClient(paths []string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{paths: paths, logger: logger.With(slog.String("client", "ofx"))}
}

func (c *Client) GetTransactions(ctx context.Context, q ledger.TransactionQuery) ([]*ledger.Transaction, error) {
	accounts := make(map[string]bool, len(q.AccountIDs))
	for _, id := range q.AccountIDs {
		accounts[id] = true
	}

	var out []*ledger.Transaction
	for _, path := range c.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txs, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		for _, t := range txs {
			if !q.StartDate.IsZero() && t.Date.Before(q.StartDate) {
				continue
			}
			if !q.EndDate.IsZero() && t.Date.After(q.EndDate) {
				continue
			}
			if len(accounts) > 0 && !accounts[t.Account.ID] {
				continue
			}
			if q.Search != "" && !strings.Contains(strings.ToLower(t.Description()), strings.ToLower(q.Search)) {
				continue
			}
			out = append(out, t)
		}
		c.logger.Info("parsed statement", slog.String("path", path), slog.Int("transactions", len(txs)))
	}
	return out, nil
}

func (c *Client) GetCategories(context.Context) ([]ledger.Category, error) {
	return nil, nil
}

func (c *Client) UpdateTransaction(context.Context, *ledger.TransactionUpdate) error {
	return ErrReadOnly
}

func (c *Client) SplitTransaction(context.Context, *ledger.SplitUpdate) error {
	return ErrReadOnly
}

func parseFile(path string) ([]*ledger.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	txs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return txs, nil
}
