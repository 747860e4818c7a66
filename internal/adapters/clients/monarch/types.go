package monarch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
)

type graphQLRequest struct {
	OperationName string `json:"operationName"`
	Query         string `json:"query"`
	Variables     any    `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type payloadError struct {
	Message     string `json:"message"`
	Code        string `json:"code"`
	FieldErrors []struct {
		Field    string   `json:"field"`
		Messages []string `json:"messages"`
	} `json:"fieldErrors"`
}

func (p *payloadError) messages() []string {
	var out []string
	if p.Message != "" {
		out = append(out, p.Message)
	}
	for _, fe := range p.FieldErrors {
		out = append(out, fmt.Sprintf("%s: %s", fe.Field, strings.Join(fe.Messages, ", ")))
	}
	if len(out) == 0 && p.Code != "" {
		out = append(out, p.Code)
	}
	return out
}

type wireCategory struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Icon             string `json:"icon"`
	Order            int    `json:"order"`
	IsSystemCategory bool   `json:"isSystemCategory"`
	IsDisabled       bool   `json:"isDisabled"`
	Group            *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"group"`
}

func (c wireCategory) toDomain() ledger.Category {
	cat := ledger.Category{
		ID:               c.ID,
		Name:             c.Name,
		Icon:             c.Icon,
		Order:            c.Order,
		IsSystemCategory: c.IsSystemCategory,
		IsDisabled:       c.IsDisabled,
	}
	if c.Group != nil {
		cat.GroupID = c.Group.ID
		cat.GroupName = c.Group.Name
		cat.GroupType = c.Group.Type
	}
	return cat
}

type wireTransaction struct {
	ID                 string            `json:"id"`
	Amount             float64           `json:"amount"`
	Pending            bool              `json:"pending"`
	Date               string            `json:"date"`
	OriginalDate       string            `json:"originalDate"`
	HideFromReports    bool              `json:"hideFromReports"`
	PlaidName          string            `json:"plaidName"`
	Notes              string            `json:"notes"`
	IsRecurring        bool              `json:"isRecurring"`
	ReviewStatus       string            `json:"reviewStatus"`
	NeedsReview        bool              `json:"needsReview"`
	IsSplitTransaction bool              `json:"isSplitTransaction"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
	Category           *wireCategory     `json:"category"`
	Merchant           ledger.Merchant   `json:"merchant"`
	Account            ledger.Account    `json:"account"`
	Tags               []ledger.Tag      `json:"tags"`
	SplitTransactions  []wireTransaction `json:"splitTransactions"`
}

func (w *wireTransaction) toDomain(parentID string) (*ledger.Transaction, error) {
	t := &ledger.Transaction{
		ID:              w.ID,
		Amount:          currency.FromFloat(w.Amount),
		Pending:         w.Pending,
		HideFromReports: w.HideFromReports,
		PlaidName:       w.PlaidName,
		Notes:           w.Notes,
		IsRecurring:     w.IsRecurring,
		ReviewStatus:    w.ReviewStatus,
		NeedsReview:     w.NeedsReview,
		IsSplit:         w.IsSplitTransaction,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
		Merchant:        w.Merchant,
		Account:         w.Account,
		Tags:            w.Tags,
		ParentID:        parentID,
	}
	if w.Category != nil {
		t.Category = w.Category.toDomain()
	}

	if w.Date != "" {
		d, err := ledger.ParseDate(w.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: invalid date %q: %w", w.ID, w.Date, err)
		}
		t.Date = d
	}
	if w.OriginalDate != "" {
		if d, err := ledger.ParseDate(w.OriginalDate); err == nil {
			t.OriginalDate = d
		}
	}

	for i := range w.SplitTransactions {
		child := &w.SplitTransactions[i]
		if child.Date == "" {
			child.Date = w.Date
		}
		s, err := child.toDomain(w.ID)
		if err != nil {
			return nil, err
		}
		if s.Account.ID == "" {
			s.Account = t.Account
		}
		t.Splits = append(t.Splits, s)
	}
	return t, nil
}

type transactionsData struct {
	AllTransactions struct {
		TotalCount int               `json:"totalCount"`
		Results    []wireTransaction `json:"results"`
	} `json:"allTransactions"`
}

type categoriesData struct {
	Categories []wireCategory `json:"categories"`
}

type updateTransactionData struct {
	UpdateTransaction struct {
		Transaction *struct {
			ID string `json:"id"`
		} `json:"transaction"`
		Errors *payloadError `json:"errors"`
	} `json:"updateTransaction"`
}

type splitTransactionData struct {
	UpdateTransactionSplit struct {
		Transaction *struct {
			ID                   string `json:"id"`
			HasSplitTransactions bool   `json:"hasSplitTransactions"`
		} `json:"transaction"`
		Errors *payloadError `json:"errors"`
	} `json:"updateTransactionSplit"`
}

type splitDataInput struct {
	MerchantName string  `json:"merchantName"`
	Amount       float64 `json:"amount"`
	CategoryID   string  `json:"categoryId"`
	Notes        string  `json:"notes,omitempty"`
}
