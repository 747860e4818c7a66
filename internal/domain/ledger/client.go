package ledger

import (
	"context"
	"time"
)

// TransactionQuery narrows a transaction fetch. Zero dates are unbounded.
type TransactionQuery struct {
	StartDate  time.Time
	EndDate    time.Time
	AccountIDs []string
	Search     string
}

// Client reads and edits ledger transactions.
type Client interface {
	GetTransactions(ctx context.Context, q TransactionQuery) ([]*Transaction, error)
	GetCategories(ctx context.Context) ([]Category, error)
	UpdateTransaction(ctx context.Context, u *TransactionUpdate) error
	SplitTransaction(ctx context.Context, u *SplitUpdate) error
}
