package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/monk-time/icm-dead-video-links/audit"
	"github.com/monk-time/icm-dead-video-links/config"
	icmhttp "github.com/monk-time/icm-dead-video-links/http"
	"github.com/monk-time/icm-dead-video-links/hosts"
	"github.com/monk-time/icm-dead-video-links/icm"
	"github.com/monk-time/icm-dead-video-links/internal/logging"
	"github.com/monk-time/icm-dead-video-links/storage"
)

func main() {
	// Optional .env file for ICMDEAD_* overrides; absence is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "audit":
		cmdAudit(args)
	case "batch":
		cmdBatch(args)
	case "sort":
		cmdSort(args)
	case "export":
		cmdExport(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		// A bare username is the most common invocation.
		cmdAudit(os.Args[1:])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `deadlinks - find dead video links in icheckmovies comments

Usage:
  deadlinks audit [flags] <username>   Check one user's comments
  deadlinks batch [flags]              Check the most active commenters
  deadlinks sort                       Sort the report by dead-link count
  deadlinks export                     Export the report to CSV
  deadlinks help                       Show this help message

Examples:
  deadlinks someuser                   # Check all of a user's comment pages
  deadlinks audit someuser -from 3     # Start from page 3
  deadlinks batch -top 25              # Check the top 25 commenters
  deadlinks batch -top 25 -i           # ...even ones checked before
  deadlinks batch -top 50 -from 26 -a  # Users 26-50 by all checks

For help on specific command: deadlinks <command> -h
`)
}

// app bundles everything a subcommand needs. The cleanup function must be
// called before exit so the log file and ledger are flushed.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	icm     *icm.Client
	auditor *audit.Auditor
	ledger  *storage.Ledger
	report  *storage.Report
	cleanup func()
}

// newApp wires the full pipeline: config, logging, the rate-limited HTTP
// client, the site client, the host registry and the auditor.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logging.New(cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	httpCfg := icmhttp.DefaultConfig()
	httpCfg.Timeout = cfg.HTTPTimeout
	httpCfg.UserAgent = cfg.UserAgent
	httpCfg.ProxyURL = cfg.ProxyURL
	httpCfg.RequestsPerSecond = cfg.RequestsPerSecond
	httpClient, err := icmhttp.New(httpCfg)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init http client: %w", err)
	}

	yt, err := hosts.NewYouTubeChecker(ctx, cfg.APIKey, cfg.TotalRegionCodes)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init youtube checker: %w", err)
	}
	probe := hosts.NewProbeChecker(httpClient)
	registry := hosts.NewRegistry(hosts.DefaultHosts(probe, yt)...)

	icmClient := icm.NewClient(httpClient, cfg.BaseURL, log)
	report := storage.NewReport(cfg.ReportPath)
	ledger, err := storage.OpenLedger(cfg.LedgerPath)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	cleanup := func() {
		ledger.Close()
		closeLog()
	}
	return &app{
		cfg:     cfg,
		log:     log,
		icm:     icmClient,
		auditor: audit.NewAuditor(log, icmClient, registry, report, ledger),
		ledger:  ledger,
		report:  report,
		cleanup: cleanup,
	}, nil
}

func cmdAudit(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	from := fs.Int("from", 1, "First comment page to check")
	to := fs.Int("to", 0, "Last comment page to check (0 = last page)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: deadlinks audit [flags] <username>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing username\n")
		fs.Usage()
		os.Exit(1)
	}
	user := argv[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.cleanup()

	entries, err := a.auditor.AuditUser(ctx, user, *from, *to)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error("audit failed", zap.Error(err))
		os.Exit(1)
	}
	if err := a.report.AppendBlock(user, a.icm.UserCommentsURL(user), entries); err != nil {
		a.log.Error("failed to write report", zap.Error(err))
		os.Exit(1)
	}
	a.log.Info("audit done",
		zap.String("user", user),
		zap.Int("dead_links", len(entries)),
		zap.String("report", a.report.Path()))
}

func cmdBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	top := fs.Int("top", 25, "How many of the most active commenters to check")
	from := fs.Int("from", 1, "First position in the commenter chart")
	ignoreLedger := fs.Bool("i", false, "Check users even if they were checked before")
	byAllChecks := fs.Bool("a", false, "Rank users by all checks instead of the comment chart")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: deadlinks batch [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if *top <= 0 {
		fmt.Fprintf(os.Stderr, "Error: -top must be positive\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.cleanup()

	users, err := a.icm.TopUsers(ctx, *from, *from+*top-1, *byAllChecks)
	if err != nil {
		a.log.Error("failed to fetch top commenters", zap.Error(err))
		os.Exit(1)
	}

	if err := a.auditor.BatchAudit(ctx, users, 1, *ignoreLedger); err != nil {
		if errors.Is(err, context.Canceled) {
			a.log.Info("batch interrupted, progress saved")
			return
		}
		a.log.Error("batch failed", zap.Error(err))
		os.Exit(1)
	}
	a.log.Info("batch done", zap.String("report", a.report.Path()))
}

func cmdSort(args []string) {
	fs := flag.NewFlagSet("sort", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: deadlinks sort\n")
	}
	fs.Parse(args)

	cfg, err := config.LoadLocal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	report := storage.NewReport(cfg.ReportPath)
	total, err := report.Resort()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sorting report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sorted %s (%d dead links)\n", cfg.ReportPath, total)
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: deadlinks export\n")
	}
	fs.Parse(args)

	cfg, err := config.LoadLocal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	report := storage.NewReport(cfg.ReportPath)
	rows, err := report.ExportCSV()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d rows to %s\n", rows, report.CSVPath())
}
