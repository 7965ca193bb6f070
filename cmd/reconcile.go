package cmd

import (
	"context"
	"fmt"
	"os"

	"asset-reconciler/core/config"
	"asset-reconciler/core/dataset"
	"asset-reconciler/core/lansweeper"
	"asset-reconciler/core/logger"
	"asset-reconciler/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the reconcile command
	dryRun      bool
	yesContinue bool
	resolveMode string
	reportPath  string
)

// reconcileCmd runs a full reconciliation of the spreadsheet against the
// remote service.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile the asset spreadsheet against the remote service",
	Long: `Reconcile every spreadsheet row against the remote asset record with the
same serial number.

Fields empty on one side are filled from the other; conflicting values are
resolved interactively (or by a fixed policy via --resolve). All mutations,
skips, and errors are appended to the discrepancy report.

Examples:
  # Interactive run
  asset-reconciler reconcile

  # Report only, no mutations
  asset-reconciler reconcile --dry-run

  # Non-interactive: skip all conflicts, auto-accept the continuation gate
  asset-reconciler reconcile --resolve=skip --yes

  # Non-interactive: the spreadsheet wins every conflict
  asset-reconciler reconcile --resolve=local --yes`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report only, perform no local or remote mutations")
	reconcileCmd.Flags().BoolVar(&yesContinue, "yes", false, "Auto-accept the continuation gate (non-interactive)")
	reconcileCmd.Flags().StringVar(&resolveMode, "resolve", "prompt", "Conflict policy: prompt, skip, local, or remote")
	reconcileCmd.Flags().StringVar(&reportPath, "report", "", "Discrepancy report path (overrides config)")

	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	if cfg.Lansweeper.SiteID == "" {
		return fmt.Errorf("lansweeper site_id is not configured (set LANSWEEPER_SITE_ID)")
	}
	if cfg.Lansweeper.Token == "" {
		return fmt.Errorf("lansweeper token is not configured (set LANSWEEPER_TOKEN)")
	}

	resolver, interactive, err := buildResolver(resolveMode)
	if err != nil {
		return err
	}

	var gate reconcile.Gate = reconcile.NewPromptGate(os.Stdin, os.Stdout)
	if yesContinue {
		gate = reconcile.AutoGate{}
	}

	l.Info("Starting reconciliation",
		zap.String("spreadsheet", cfg.Dataset.Path),
		zap.Bool("dry_run", dryRun),
		zap.String("resolve", resolveMode),
	)

	// Open the local dataset
	table, err := dataset.Open(cfg.Dataset)
	if err != nil {
		return err
	}
	defer table.Close()

	client := lansweeper.NewClient(cfg.Lansweeper)
	ledger := reconcile.NewLedger()
	dispatcher := reconcile.NewDispatcher(client, gate, cfg.Reconcile.GateEvery, l)

	engine := reconcile.NewEngine(table, client, dispatcher, resolver, ledger, reconcile.Options{
		SerialColumn: cfg.Reconcile.SerialColumn,
		Fields:       cfg.Reconcile.Fields(),
		DryRun:       dryRun,
		Progress:     showProgress(interactive, yesContinue),
	}, l)

	summary, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	// Persist the local dataset at most once, only if something changed.
	if table.Dirty() && !dryRun {
		if err := table.Save(); err != nil {
			return err
		}
		l.Info("Spreadsheet saved", zap.String("path", cfg.Dataset.Path))
	}

	// Append the report
	path := cfg.Reconcile.Report
	if reportPath != "" {
		path = reportPath
	}
	if err := writeReport(ledger, path, summary.Requests); err != nil {
		return err
	}

	l.Info("Reconciliation complete",
		zap.Int("processed", summary.IdentitiesProcessed),
		zap.Int("skipped", summary.IdentitiesSkipped),
		zap.Int("matches", summary.Matches),
		zap.Int("local_mutations", summary.LocalMutations),
		zap.Int("remote_mutations", summary.RemoteMutations),
		zap.Int("conflicts", summary.Conflicts),
		zap.Int("requests", summary.Requests),
		zap.String("report", path),
	)

	return nil
}

// buildResolver maps the --resolve flag onto a conflict resolver.
// interactive reports whether the resolver prompts on the terminal.
func buildResolver(mode string) (resolver reconcile.Resolver, interactive bool, err error) {
	switch mode {
	case "prompt":
		return reconcile.NewPromptResolver(os.Stdin, os.Stdout), true, nil
	case "skip":
		return reconcile.PolicyResolver{Direction: reconcile.DirectionSkip}, false, nil
	case "local":
		return reconcile.PolicyResolver{Direction: reconcile.DirectionAdoptLocal}, false, nil
	case "remote":
		return reconcile.PolicyResolver{Direction: reconcile.DirectionAdoptRemote}, false, nil
	default:
		return nil, false, fmt.Errorf("unknown --resolve mode %q (want prompt, skip, local, or remote)", mode)
	}
}

// showProgress reports whether a progress bar can run without colliding with
// a terminal prompt. Both the conflict resolver and the continuation gate may
// prompt, so the bar only runs when neither can.
func showProgress(interactiveResolver, autoGate bool) bool {
	return !interactiveResolver && autoGate
}

// writeReport appends this run's report to the given path.
func writeReport(ledger *reconcile.Ledger, path string, requests int) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer f.Close()

	if err := ledger.WriteReport(f, requests); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
