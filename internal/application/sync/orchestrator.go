package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/categorizer"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/matcher"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/splitter"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/validator"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

// Run loads the order history, matches it against ledger transactions, and
// proposes (and unless DryRun, sends) the resulting edits.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()
	result := &Result{
		RunID: o.newRunID(),
		Stats: newStats(),
	}

	// Lines logged during the run carry its id.
	r := *o
	r.logger = o.logger.With(slog.String("run_id", result.RunID))
	r.logger.Debug("starting tagger run",
		slog.Bool("dry_run", opts.DryRun),
		slog.Bool("force", opts.Force),
		slog.Int("num_updates", opts.NumUpdates))

	r.startRun(result.RunID, opts.DryRun)
	err := r.run(ctx, opts, result)
	r.completeRun(result, err)

	o.metrics.ObserveRun(time.Since(started), err)
	o.metrics.RecordStats(result.Stats)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, opts Options, result *Result) error {
	// 1. Load and filter items
	items, err := o.loadItems(ctx)
	if err != nil {
		return err
	}
	result.Items = filterItems(items, opts)
	if len(result.Items) == 0 {
		o.logger.Info("no closed, shipped items to match", slog.Int("loaded", len(items)))
		return nil
	}

	// 2. Group into charges
	result.Charges = order.GroupByShipment(result.Items)

	// 3. Fetch ledger data from the oldest order onward
	start, _ := oldestOrderDate(result.Items)
	categories, transactions, err := o.fetchLedger(ctx, start, opts)
	if err != nil {
		return err
	}

	// 4. Personal category history
	cat := categorizer.NewCategorizer(categories, categorizer.NewMemoryCache())
	if !opts.DoNotPredictCategories {
		learned := cat.Learn(transactions, o.historyPrefixes())
		o.logger.Debug("learned personal categories", slog.Int("items", learned))
	}

	// 5. Match
	candidates := filterTransactions(transactions, opts, result.Stats)
	progress := opts.progress()
	progress.Start("Matching charges with transactions", 0)
	match, err := matcher.NewMatcher(o.config.Matcher).Match(ctx, result.Charges, candidates)
	progress.Finish()
	if err != nil {
		return err
	}
	o.recordMatchStats(result, match)

	// 6. Propose
	if err := o.propose(ctx, opts, result, match, cat); err != nil {
		return err
	}
	if opts.NumUpdates > 0 && len(result.Updates) > opts.NumUpdates {
		result.Updates = result.Updates[:opts.NumUpdates]
	}

	// 7. Send
	if opts.DryRun {
		for _, u := range result.Updates {
			o.recordUpdate(result.RunID, u, storage.StatusSuccess, true, nil)
		}
		return nil
	}
	return o.apply(ctx, opts, result)
}

// historyPrefixes are the description prefixes of previously tagged items.
func (o *Orchestrator) historyPrefixes() []string {
	prefixes := make([]string, 0, len(o.config.Domains)+1)
	for _, d := range o.config.Domains {
		prefixes = append(prefixes, d+": ")
	}
	if o.config.PrefixOverride != "" {
		prefixes = append(prefixes, o.config.PrefixOverride)
	}
	return prefixes
}

// prefix is prepended to every generated description.
func (o *Orchestrator) prefix(c *order.Charge) string {
	if o.config.PrefixOverride != "" {
		return o.config.PrefixOverride
	}
	return c.Website() + ": "
}

func (o *Orchestrator) recordMatchStats(result *Result, match *matcher.Result) {
	unmatched := append(append([]*order.Charge(nil), match.UnmatchedCharges...), match.Unshipped...)
	result.UnmatchedCharges = unmatched

	giftCard := 0
	for _, c := range unmatched {
		if c.UsedGiftCard() {
			giftCard++
		}
	}

	for _, t := range match.UnmatchedTransactions {
		if result.EarliestUnmatched.IsZero() || t.Date.Before(result.EarliestUnmatched) {
			result.EarliestUnmatched = t.Date
		}
		if t.Date.After(result.LatestUnmatched) {
			result.LatestUnmatched = t.Date
		}
	}

	s := result.Stats
	s[StatTransMatch] = len(match.Matches)
	s[StatTransUnmatch] = len(match.UnmatchedTransactions)
	s[StatOrderMatch] = len(result.Charges) - len(unmatched)
	s[StatOrderUnmatch] = len(unmatched)
	s[StatSkippedGiftCard] = giftCard
	s[StatSkippedUnshipped] = len(match.Unshipped)
	s[StatBudgetExceeded] = match.Stats.BudgetExceeded

	for _, t := range match.BudgetExceeded {
		o.logger.Warn("combination search skipped, too many candidate charges",
			slog.String("transaction_id", t.ID),
			slog.String("amount", t.Amount.String()),
			slog.String("date", t.Date.Format(ledger.DateLayout)))
	}
}

// propose turns each matched debit into an Update.
func (o *Orchestrator) propose(ctx context.Context, opts Options, result *Result, match *matcher.Result, cat *categorizer.Categorizer) error {
	gen := splitter.NewGenerator(o.config.Splitter, o.logger)

	var debits []*matcher.Match
	for _, m := range match.Matches {
		switch {
		case !m.Transaction.IsDebit():
			result.Stats[StatSkippedCredit]++
			o.logger.Debug("skipping matched credit", slog.String("transaction_id", m.Transaction.ID))
		case !opts.Force && o.storage != nil && o.storage.IsApplied(m.Transaction.ID):
			result.Stats[StatAlreadyApplied]++
			o.logger.Debug("skipping already applied transaction", slog.String("transaction_id", m.Transaction.ID))
		default:
			debits = append(debits, m)
		}
	}

	// Repairs are independent per charge, so run them up front.
	charges := make([]*order.Charge, len(debits))
	for i, m := range debits {
		charges[i] = order.Merge(m.Charges...)
	}
	reports, err := order.RepairAll(ctx, charges, o.config.RepairWorkers)
	if err != nil {
		return fmt.Errorf("failed to repair charges: %w", err)
	}

	progress := opts.progress()
	progress.Start("Determining ledger updates", len(debits))
	defer progress.Finish()

	for i, m := range debits {
		if err := ctx.Err(); err != nil {
			return err
		}
		progress.Increment()

		t, charge := m.Transaction, charges[i]
		repairs := reports[i].Names()
		for _, name := range repairs {
			result.Stats[name]++
		}

		u, err := o.buildUpdate(gen, cat, charge, t, repairs, result.Stats)
		if err != nil {
			result.Stats[StatInvalidCharge]++
			o.fail(result, m.Transaction, m.OrderIDs(), charge, repairs, opts.DryRun, err)
			continue
		}
		u.Proposal.OrderIDs = m.OrderIDs()

		if u.Proposal.Identical(opts.NoTagCategories) {
			result.Stats[StatAlreadyUpToDate]++
			o.recordUpdate(result.RunID, u, storage.StatusUpToDate, opts.DryRun, nil)
			continue
		}

		if o.alreadyTagged(t, o.prefix(charge)) {
			u.Retag = true
			switch {
			case opts.PromptRetag:
				if opts.NumUpdates > 0 && len(result.Updates) >= opts.NumUpdates {
					return nil
				}
				ok, err := o.confirmRetag(ctx, opts, u)
				if err != nil {
					return err
				}
				if !ok {
					result.Stats[StatUserSkippedRetag]++
					continue
				}
				result.Stats[StatRetag]++
			case !opts.RetagChanged:
				result.Stats[StatNoRetag]++
				continue
			default:
				result.Stats[StatRetag]++
			}
		} else {
			result.Stats[StatNewTag]++
		}
		result.Updates = append(result.Updates, u)
	}
	return nil
}

// buildUpdate validates the repaired charge and generates its proposal.
func (o *Orchestrator) buildUpdate(
	gen *splitter.Generator,
	cat *categorizer.Categorizer,
	charge *order.Charge,
	t *ledger.Transaction,
	repairs []string,
	stats Stats,
) (*Update, error) {
	if v := validator.ValidateRepairedCharge(charge, t); !v.Valid {
		return nil, v
	}

	splits := gen.Splits(charge, t)
	if v := validator.ValidateSplits(splits, t); !v.Valid {
		return nil, v
	}
	stats[StatPersonalCategory] += cat.Apply(splits)

	proposal := gen.Finish(charge, t, splits, o.prefix(charge))
	for i := range proposal.Splits {
		s := &proposal.Splits[i]
		if s.CategoryID != "" {
			continue
		}
		if c, ok := cat.Category(s.CategoryName); ok {
			s.CategoryID = c.ID
		}
	}
	return &Update{Proposal: proposal, Charge: charge, Repairs: repairs}, nil
}

// alreadyTagged reports whether the transaction (or one of its splits) was
// tagged by an earlier run.
func (o *Orchestrator) alreadyTagged(t *ledger.Transaction, prefix string) bool {
	prefixes := []string{strings.ToLower(prefix)}
	for _, d := range o.config.Domains {
		prefixes = append(prefixes, strings.ToLower(d)+": ")
	}
	descriptions := []string{t.Description()}
	for _, s := range t.Splits {
		descriptions = append(descriptions, s.Description())
	}
	for _, desc := range descriptions {
		lower := strings.ToLower(desc)
		for _, p := range prefixes {
			if strings.HasPrefix(lower, p) {
				return true
			}
		}
	}
	return false
}

func (o *Orchestrator) confirmRetag(ctx context.Context, opts Options, u *Update) (bool, error) {
	if opts.ConfirmRetag == nil {
		return true, nil
	}
	ok, err := opts.ConfirmRetag(ctx, u)
	if err != nil {
		return false, fmt.Errorf("retag prompt: %w", err)
	}
	return ok, nil
}

// apply sends every update. A failed update is recorded and the rest still go out.
func (o *Orchestrator) apply(ctx context.Context, opts Options, result *Result) error {
	progress := opts.progress()
	progress.Start("Updating ledger", len(result.Updates))
	defer progress.Finish()

	for _, u := range result.Updates {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := o.send(ctx, u, opts.NoTagCategories)
		o.metrics.RecordUpdate(err)
		progress.Increment()

		t := u.Transaction()
		if err != nil {
			result.Stats[StatUpdateErrors]++
			result.Errors = append(result.Errors, &MatchError{TransactionID: t.ID, OrderIDs: u.Proposal.OrderIDs, Err: err})
			o.logger.Error("failed to update transaction",
				slog.String("transaction_id", t.ID),
				slog.Any("error", err))
			o.recordUpdate(result.RunID, u, storage.StatusFailed, false, err)
			continue
		}

		result.Applied++
		result.Stats[StatUpdatesSent]++
		o.logger.Info("updated transaction",
			slog.String("transaction_id", t.ID),
			slog.Int("splits", len(u.Proposal.Splits)),
			slog.Bool("retag", u.Retag))
		o.recordUpdate(result.RunID, u, storage.StatusSuccess, false, nil)
	}
	return nil
}

// send edits a transaction in place, or splits it when itemized.
func (o *Orchestrator) send(ctx context.Context, u *Update, ignoreCategory bool) error {
	p := u.Proposal
	if !p.IsItemized() {
		return o.ledger.UpdateTransaction(ctx, ledger.NewUpdate(p.Transaction, p.Splits[0], ignoreCategory))
	}
	split := ledger.NewSplitUpdate(p.Transaction, p.Splits, ignoreCategory)
	if err := split.Validate(p.Transaction.Amount); err != nil {
		return err
	}
	return o.ledger.SplitTransaction(ctx, split)
}

func (o *Orchestrator) fail(result *Result, t *ledger.Transaction, orderIDs []string, charge *order.Charge, repairs []string, dryRun bool, err error) {
	result.Errors = append(result.Errors, &MatchError{TransactionID: t.ID, OrderIDs: orderIDs, Err: err})
	o.logger.Warn("skipping transaction",
		slog.String("transaction_id", t.ID),
		slog.Any("order_ids", orderIDs),
		slog.Any("error", err))
	o.saveRecord(&storage.MatchRecord{
		TransactionID:     t.ID,
		RunID:             result.RunID,
		OrderIDs:          orderIDs,
		TransactionDate:   t.Date,
		TransactionAmount: t.Amount.ToFloat(),
		ChargeAmount:      charge.TransactAmount().ToFloat(),
		Status:            storage.StatusFailed,
		ErrorMessage:      err.Error(),
		DryRun:            dryRun,
		Repairs:           repairs,
	})
}
