package ledger

import (
	"context"
	"sync"
)

// MockClient is an in-memory implementation of Client for testing. Reads
// return the configured slices; writes are recorded.
type MockClient struct {
	mu sync.Mutex

	Transactions []*Transaction
	Categories   []Category

	// Recorded calls
	Queries []TransactionQuery
	Updates []*TransactionUpdate
	Splits  []*SplitUpdate

	// Error injection for testing error paths
	GetTransactionsErr   error
	GetCategoriesErr     error
	UpdateTransactionErr error
	SplitTransactionErr  error
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock serving the given data.
func NewMockClient(transactions []*Transaction, categories []Category) *MockClient {
	return &MockClient{Transactions: transactions, Categories: categories}
}

func (m *MockClient) GetTransactions(_ context.Context, q TransactionQuery) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Queries = append(m.Queries, q)
	if m.GetTransactionsErr != nil {
		return nil, m.GetTransactionsErr
	}
	out := make([]*Transaction, 0, len(m.Transactions))
	for _, t := range m.Transactions {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (m *MockClient) GetCategories(context.Context) ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetCategoriesErr != nil {
		return nil, m.GetCategoriesErr
	}
	return append([]Category(nil), m.Categories...), nil
}

func (m *MockClient) UpdateTransaction(_ context.Context, u *TransactionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateTransactionErr != nil {
		return m.UpdateTransactionErr
	}
	m.Updates = append(m.Updates, u)
	return nil
}

func (m *MockClient) SplitTransaction(_ context.Context, u *SplitUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SplitTransactionErr != nil {
		return m.SplitTransactionErr
	}
	m.Splits = append(m.Splits, u)
	return nil
}
