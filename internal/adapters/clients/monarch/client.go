// Package monarch is a small GraphQL client for the Monarch Money API,
// covering the calls needed to read transactions and categories and to
// edit or split transactions.
package monarch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
)

const (
	DefaultBaseURL  = "https://api.monarchmoney.com"
	DefaultPageSize = 100
	graphQLPath     = "/graphql"
)

// APIError is returned when the API rejects a request, either at the HTTP
// level or through GraphQL/payload errors.
type APIError struct {
	Operation  string
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		return fmt.Sprintf("monarch %s: HTTP %d: %s", e.Operation, e.StatusCode, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("monarch %s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// Config holds connection settings for the client
type Config struct {
	Token      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	PageSize   int
}

// Client implements ledger.Client against the Monarch GraphQL API.
type Client struct {
	endpoint string
	token    string
	http     *retryablehttp.Client
	logger   *slog.Logger
	pageSize int
	now      func() time.Time
}

var _ ledger.Client = (*Client)(nil)

// NewClient creates a new Monarch client
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("monarch token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.MaxRetries
	httpClient.RetryWaitMin = 500 * time.Millisecond
	httpClient.RetryWaitMax = 10 * time.Second
	httpClient.Logger = logger.With(slog.String("component", "monarch-http"))
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.Timeout > 0 {
		httpClient.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{
		endpoint: baseURL + graphQLPath,
		token:    cfg.Token,
		http:     httpClient,
		logger:   logger.With(slog.String("client", "monarch")),
		pageSize: pageSize,
		now:      time.Now,
	}, nil
}

// GetTransactions pages through every transaction matching q. The API
// requires both date bounds, so an open end date means today. An end date
// without a start date is ignored.
func (c *Client) GetTransactions(ctx context.Context, q ledger.TransactionQuery) ([]*ledger.Transaction, error) {
	filters := map[string]any{
		"search":     q.Search,
		"categories": []string{},
		"accounts":   nonNil(q.AccountIDs),
		"tags":       []string{},
	}
	if !q.StartDate.IsZero() {
		end := q.EndDate
		if end.IsZero() {
			end = c.now()
		}
		filters["startDate"] = q.StartDate.Format(ledger.DateLayout)
		filters["endDate"] = end.Format(ledger.DateLayout)
	}

	var out []*ledger.Transaction
	offset := 0
	for {
		vars := map[string]any{
			"offset":  offset,
			"limit":   c.pageSize,
			"orderBy": "date",
			"filters": filters,
		}
		var data transactionsData
		if err := c.do(ctx, opGetTransactions, getTransactionsQuery, vars, &data); err != nil {
			return nil, err
		}

		page := data.AllTransactions.Results
		for i := range page {
			t, err := page[i].toDomain("")
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		offset += len(page)
		c.logger.Debug("received transactions page",
			slog.Int("count", len(page)),
			slog.Int("offset", offset),
			slog.Int("total", data.AllTransactions.TotalCount),
		)
		if len(page) == 0 || offset >= data.AllTransactions.TotalCount {
			break
		}
	}

	c.logger.Info("fetched transactions", slog.Int("count", len(out)))
	return out, nil
}

// GetCategories returns every category configured in the account.
func (c *Client) GetCategories(ctx context.Context) ([]ledger.Category, error) {
	var data categoriesData
	if err := c.do(ctx, opGetCategories, getCategoriesQuery, nil, &data); err != nil {
		return nil, err
	}
	cats := make([]ledger.Category, 0, len(data.Categories))
	for _, wc := range data.Categories {
		cats = append(cats, wc.toDomain())
	}
	return cats, nil
}

// UpdateTransaction edits a transaction in place.
func (c *Client) UpdateTransaction(ctx context.Context, u *ledger.TransactionUpdate) error {
	input := map[string]any{
		"id":       u.ID,
		"category": u.CategoryID,
		"name":     u.MerchantName,
	}
	if u.Amount != nil && !u.Amount.IsZero() {
		input["amount"] = u.Amount.RoundToCent().ToFloat()
	}
	if u.Date != nil && !u.Date.IsZero() {
		input["date"] = u.Date.Format(ledger.DateLayout)
	}
	if u.HideFromReports != nil {
		input["hideFromReports"] = *u.HideFromReports
	}
	if u.NeedsReview != nil {
		input["needsReview"] = *u.NeedsReview
	}
	if u.GoalID != nil {
		input["goalId"] = *u.GoalID
	}
	if u.Notes != nil {
		input["notes"] = *u.Notes
	}

	var data updateTransactionData
	if err := c.do(ctx, opUpdateTransaction, updateTransactionMutation, map[string]any{"input": input}, &data); err != nil {
		return err
	}
	if pe := data.UpdateTransaction.Errors; pe != nil {
		if msgs := pe.messages(); len(msgs) > 0 {
			return &APIError{Operation: opUpdateTransaction, Messages: msgs}
		}
	}
	return nil
}

// SplitTransaction replaces a transaction's splits. The split amounts must
// sum to the parent amount.
func (c *Client) SplitTransaction(ctx context.Context, u *ledger.SplitUpdate) error {
	splits := make([]splitDataInput, 0, len(u.Splits))
	for _, s := range u.Splits {
		splits = append(splits, splitDataInput{
			MerchantName: s.MerchantName,
			Amount:       s.Amount.RoundToCent().ToFloat(),
			CategoryID:   s.CategoryID,
			Notes:        s.Notes,
		})
	}
	vars := map[string]any{
		"input": map[string]any{
			"transactionId": u.TransactionID,
			"splitData":     splits,
		},
	}

	var data splitTransactionData
	if err := c.do(ctx, opSplitTransaction, splitTransactionMutation, vars, &data); err != nil {
		return err
	}
	if pe := data.UpdateTransactionSplit.Errors; pe != nil {
		if msgs := pe.messages(); len(msgs) > 0 {
			return &APIError{Operation: opSplitTransaction, Messages: msgs}
		}
	}
	return nil
}

// do posts one GraphQL operation and decodes its data into out.
func (c *Client) do(ctx context.Context, operation, query string, variables any, out any) error {
	body, err := json.Marshal(graphQLRequest{OperationName: operation, Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", operation, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Client-Platform", "web")
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("monarch %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", operation, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Messages: []string{strings.TrimSpace(string(raw))}}
	}

	var gql graphQLResponse
	if err := json.Unmarshal(raw, &gql); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	if len(gql.Errors) > 0 {
		msgs := make([]string, 0, len(gql.Errors))
		for _, e := range gql.Errors {
			msgs = append(msgs, e.Message)
		}
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Messages: msgs}
	}
	if out == nil || len(gql.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gql.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", operation, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
