package cli

import (
	"github.com/spf13/cobra"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
)

// TagFlags are the tag command's flags. Flags the user set override the
// config file; unset flags leave it alone.
type TagFlags struct {
	AmazonExports  []string
	DryRun         bool
	SkipDryPrint   bool
	PrintUnmatched bool
	Force          bool

	VerboseItemize         bool
	NoItemize              bool
	NumUpdates             int
	RetagChanged           bool
	PromptRetag            bool
	NoTagCategories        bool
	DoNotPredictCategories bool
	PrefixOverride         string
	AmazonDomains          []string
	MaxDays                int
	MaxCombinations        int
	Anchor                 string
	StrictParsing          bool

	DescriptionFilter      []string
	IncludeUserDescription bool
	CategoriesFilter       []string
	StartDate              string
	EndDate                string

	SaveBackup bool
	UseBackup  int64
	BackupPath string
	OFXFiles   []string
}

// BindTagFlags registers the tag flags on cmd.
func BindTagFlags(cmd *cobra.Command) *TagFlags {
	f := &TagFlags{}
	fs := cmd.Flags()

	fs.StringSliceVar(&f.AmazonExports, "amazon_export", nil, "Amazon \"Request Your Data\" export zips or order-history CSVs")
	fs.BoolVar(&f.DryRun, "dry_run", false, "Do not modify the ledger; print proposed changes instead")
	fs.BoolVar(&f.SkipDryPrint, "skip_dry_print", false, "Do not print the dry run results")
	fs.BoolVar(&f.PrintUnmatched, "print_unmatched", false, "Print Amazon charges that did not match a transaction")
	fs.BoolVar(&f.Force, "force", false, "Reprocess transactions already recorded as applied")

	fs.BoolVar(&f.VerboseItemize, "verbose_itemize", false, "Itemize everything, including shipping and promotions")
	fs.BoolVar(&f.NoItemize, "no_itemize", false, "Summarize each charge into one edit instead of splitting")
	fs.IntVar(&f.NumUpdates, "num_updates", 0, "Only send this many updates (0 = all)")
	fs.BoolVar(&f.RetagChanged, "retag_changed", false, "Overwrite earlier tags whose proposal changed")
	fs.BoolVar(&f.PromptRetag, "prompt_retag", false, "Ask before retagging each already-tagged transaction")
	fs.BoolVar(&f.NoTagCategories, "no_tag_categories", false, "Do not set categories on edited transactions")
	fs.BoolVar(&f.DoNotPredictCategories, "do_not_predict_categories", false, "Do not learn categories from earlier tagging")
	fs.StringVar(&f.PrefixOverride, "description_prefix_override", "", "Merchant prefix to use instead of the order's website")
	fs.StringSliceVar(&f.AmazonDomains, "amazon_domains", nil, "Storefront domains whose prefix marks a transaction as tagged")
	fs.IntVar(&f.MaxDays, "max_days_between_payment_and_shipping", 0, "Days a charge may post after shipping")
	fs.IntVar(&f.MaxCombinations, "max_unmatched_charges_combinations", 0, "Largest charge set tried against one transaction")
	fs.StringVar(&f.Anchor, "anchor", "", "Charge date to match on: latest_ship_date, earliest_ship_date or order_date")
	fs.BoolVar(&f.StrictParsing, "strict_parsing", false, "Fail on any unparseable order-history record")

	fs.StringSliceVar(&f.DescriptionFilter, "mm_input_description_filter", nil, "Only consider transactions whose description contains one of these")
	fs.BoolVar(&f.IncludeUserDescription, "mm_input_include_user_description", false, "Also match the filter against the user-edited merchant name")
	fs.StringSliceVar(&f.CategoriesFilter, "mm_input_categories_filter", nil, "Only consider transactions in these categories")
	fs.StringVar(&f.StartDate, "start_date", "", "Only consider items ordered on or after this date (YYYY-MM-DD)")
	fs.StringVar(&f.EndDate, "end_date", "", "Only consider items ordered on or before this date (YYYY-MM-DD)")

	fs.BoolVar(&f.SaveBackup, "save_json_backup", false, "Save fetched transactions and categories as JSON")
	fs.Int64Var(&f.UseBackup, "use_json_backup", 0, "Read transactions and categories from the snapshot with this epoch")
	fs.StringVar(&f.BackupPath, "mm_json_backup_path", "", "Directory for JSON snapshots")
	fs.StringSliceVar(&f.OFXFiles, "ofx", nil, "Read transactions from OFX/QFX statements instead of the API")

	return f
}

// Apply copies every flag the user set onto cfg.
func (f *TagFlags) Apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	set := func(name string, apply func()) {
		if changed(name) {
			apply()
		}
	}

	set("amazon_export", func() { cfg.Amazon.ExportPaths = f.AmazonExports })
	set("description_prefix_override", func() { cfg.Amazon.PrefixOverride = f.PrefixOverride })
	set("amazon_domains", func() { cfg.Amazon.Domains = f.AmazonDomains })
	set("strict_parsing", func() { cfg.Amazon.StrictParsing = f.StrictParsing })

	set("dry_run", func() { cfg.Tagger.DryRun = f.DryRun })
	set("force", func() { cfg.Tagger.Force = f.Force })
	set("verbose_itemize", func() { cfg.Tagger.VerboseItemize = f.VerboseItemize })
	set("no_itemize", func() { cfg.Tagger.NoItemize = f.NoItemize })
	set("num_updates", func() { cfg.Tagger.NumUpdates = f.NumUpdates })
	set("retag_changed", func() { cfg.Tagger.RetagChanged = f.RetagChanged })
	set("prompt_retag", func() { cfg.Tagger.PromptRetag = f.PromptRetag })
	set("no_tag_categories", func() { cfg.Tagger.NoTagCategories = f.NoTagCategories })
	set("do_not_predict_categories", func() { cfg.Tagger.DoNotPredictCategories = f.DoNotPredictCategories })
	set("max_days_between_payment_and_shipping", func() { cfg.Tagger.MaxDaysBetweenPaymentAndShipping = f.MaxDays })
	set("max_unmatched_charges_combinations", func() { cfg.Tagger.MaxCombinations = f.MaxCombinations })
	set("anchor", func() { cfg.Tagger.Anchor = f.Anchor })
	set("mm_input_description_filter", func() { cfg.Tagger.DescriptionFilter = f.DescriptionFilter })
	set("mm_input_include_user_description", func() { cfg.Tagger.IncludeUserDescription = f.IncludeUserDescription })
	set("mm_input_categories_filter", func() { cfg.Tagger.CategoriesFilter = f.CategoriesFilter })
	set("start_date", func() { cfg.Tagger.StartDate = f.StartDate })
	set("end_date", func() { cfg.Tagger.EndDate = f.EndDate })

	set("save_json_backup", func() { cfg.Monarch.SaveBackup = f.SaveBackup })
	set("use_json_backup", func() { cfg.Monarch.UseBackup = f.UseBackup })
	set("mm_json_backup_path", func() { cfg.Monarch.BackupPath = f.BackupPath })
	set("ofx", func() { cfg.Monarch.OFXFiles = f.OFXFiles })
}
