package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/adapters/providers"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/matcher"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/splitter"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/metrics"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

// ErrNoItems is returned when the order history holds no items at all.
var ErrNoItems = errors.New("order history contains no items")

// Stat names reported in Result.Stats.
const (
	StatTrans            = "trans"
	StatAmazonInDesc     = "amazon_in_desc"
	StatPending          = "pending"
	StatTransMatch       = "trans_match"
	StatTransUnmatch     = "trans_unmatch"
	StatOrderMatch       = "order_match"
	StatOrderUnmatch     = "order_unmatch"
	StatSkippedGiftCard  = "skipped_charges_gift_card"
	StatSkippedUnshipped = "skipped_charges_unshipped"
	StatBudgetExceeded   = "budget_exceeded"
	StatMiscCharge       = order.RepairMiscCharge
	StatShippingError    = order.RepairShippingError
	StatItemizedTax      = order.RepairFractionalTax
	StatAlreadyUpToDate  = "already_up_to_date"
	StatAlreadyApplied   = "already_applied"
	StatSkippedCredit    = "skipped_credit"
	StatInvalidCharge    = "invalid_charge"
	StatPersonalCategory = "personal_cat"
	StatNewTag           = "new_tag"
	StatNoRetag          = "no_retag"
	StatRetag            = "retag"
	StatUserSkippedRetag = "user_skipped_retag"
	StatUpdatesSent      = "updates_sent"
	StatUpdateErrors     = "update_errors"
)

// Stats counts what happened during a run, keyed by the Stat constants.
type Stats map[string]int

// newStats pre-populates the stats that are only conditionally incremented.
func newStats() Stats {
	s := Stats{}
	for _, k := range []string{
		StatItemizedTax, StatAlreadyUpToDate, StatShippingError, StatMiscCharge,
		StatNewTag, StatNoRetag, StatRetag, StatUserSkippedRetag, StatPersonalCategory,
	} {
		s[k] = 0
	}
	return s
}

// Options holds per-run behaviour
type Options struct {
	DryRun                 bool
	Force                  bool // Re-process transactions already recorded as applied
	NumUpdates             int  // 0 = unlimited
	RetagChanged           bool
	PromptRetag            bool
	NoTagCategories        bool
	DoNotPredictCategories bool
	DescriptionFilter      []string
	IncludeUserDescription bool
	CategoriesFilter       []string
	AccountIDs             []string

	// StartDate and EndDate keep only items ordered within the range. Zero
	// values are unbounded.
	StartDate time.Time
	EndDate   time.Time

	// ConfirmRetag is asked about each already-tagged transaction when
	// PromptRetag is set. Returning an error aborts the run.
	ConfirmRetag func(ctx context.Context, u *Update) (bool, error)

	// Progress receives stage progress; nil reports nothing.
	Progress providers.Progress
}

// Config holds the engine settings shared by every run.
type Config struct {
	Domains        []string
	PrefixOverride string
	Matcher        matcher.Config
	Splitter       splitter.Config
	RepairWorkers  int
}

// NewConfig maps application config onto engine settings.
func NewConfig(cfg *config.Config) (Config, error) {
	anchor, err := order.ParseAnchor(cfg.Tagger.Anchor)
	if err != nil {
		return Config{}, &config.ConfigurationError{Field: "tagger.anchor", Message: err.Error()}
	}
	mc := matcher.Config{
		AmountEpsilon:                    currency.Epsilon,
		MaxDaysBetweenPaymentAndShipping: cfg.Tagger.MaxDaysBetweenPaymentAndShipping,
		MaxCombinations:                  cfg.Tagger.MaxCombinations,
		Anchor:                           anchor,
	}
	if err := mc.Validate(); err != nil {
		return Config{}, err
	}
	return Config{
		Domains:        cfg.Amazon.Domains,
		PrefixOverride: cfg.Amazon.PrefixOverride,
		Matcher:        mc,
		Splitter: splitter.Config{
			DefaultCategory:  splitter.DefaultCategory,
			SkipFreeShipping: cfg.Tagger.SkipFreeShipping(),
			Itemize:          !cfg.Tagger.NoItemize,
			VerboseItemize:   cfg.Tagger.VerboseItemize,
		},
		RepairWorkers: cfg.Tagger.RepairWorkers,
	}, nil
}

// NewOptions maps application config onto run options.
func NewOptions(cfg *config.Config) Options {
	opts := Options{
		DryRun:                 cfg.Tagger.DryRun,
		Force:                  cfg.Tagger.Force,
		NumUpdates:             cfg.Tagger.NumUpdates,
		RetagChanged:           cfg.Tagger.RetagChanged,
		PromptRetag:            cfg.Tagger.PromptRetag,
		NoTagCategories:        cfg.Tagger.NoTagCategories,
		DoNotPredictCategories: cfg.Tagger.DoNotPredictCategories,
		DescriptionFilter:      cfg.Tagger.DescriptionFilter,
		IncludeUserDescription: cfg.Tagger.IncludeUserDescription,
		CategoriesFilter:       cfg.Tagger.CategoriesFilter,
		AccountIDs:             cfg.Monarch.AccountIDs,
	}
	if start, end, ok := cfg.DateRange(); ok {
		opts.StartDate, opts.EndDate = start, end
	}
	return opts
}

// Update is one proposed ledger edit.
type Update struct {
	Proposal *ledger.Proposal
	Charge   *order.Charge
	Repairs  []string
	Retag    bool // The transaction already carried a tag
}

// Transaction returns the ledger transaction being edited.
func (u *Update) Transaction() *ledger.Transaction {
	return u.Proposal.Transaction
}

// Result holds run results
type Result struct {
	RunID            string
	Items            []*order.Item
	Charges          []*order.Charge
	Updates          []*Update
	UnmatchedCharges []*order.Charge
	Stats            Stats

	// Date range of the transactions left unmatched; zero when none.
	EarliestUnmatched time.Time
	LatestUnmatched   time.Time

	Applied int
	Errors  []error
}

// MatchError ties a per-transaction failure to its transaction.
type MatchError struct {
	TransactionID string
	OrderIDs      []string
	Err           error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("transaction %s (orders %v): %v", e.TransactionID, e.OrderIDs, e.Err)
}

func (e *MatchError) Unwrap() error {
	return e.Err
}

// Orchestrator runs the tagging process
type Orchestrator struct {
	source   providers.ItemSource
	ledger   ledger.Client
	storage  storage.Repository
	metrics  *metrics.Metrics
	config   Config
	logger   *slog.Logger
	newRunID func() string
}

// NewOrchestrator creates a new orchestrator. repo and m may be nil.
func NewOrchestrator(
	source providers.ItemSource,
	client ledger.Client,
	repo storage.Repository,
	m *metrics.Metrics,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		source:   source,
		ledger:   client,
		storage:  repo,
		metrics:  m,
		config:   cfg,
		logger:   logger,
		newRunID: uuid.NewString,
	}
}
