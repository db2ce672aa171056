package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ledgerlens/statement-auditor/internal/analyzer"
	"github.com/ledgerlens/statement-auditor/internal/api"
	"github.com/ledgerlens/statement-auditor/internal/models"
	"github.com/ledgerlens/statement-auditor/internal/parser"
	"github.com/ledgerlens/statement-auditor/internal/renamer"
	"github.com/ledgerlens/statement-auditor/internal/writer"
)

func main() {
	rootFlags := ff.NewFlagSet("statement-auditor")
	verbose := rootFlags.BoolLong("verbose", "enable debug logging")

	registry := parser.NewRegistry()
	anlz := analyzer.New(registry)

	analyzeFlags := ff.NewFlagSet("analyze").SetParent(rootFlags)
	analyzeCmd := &ff.Command{
		Name:      "analyze",
		Usage:     "statement-auditor analyze <directory>",
		ShortHelp: "analyze statement coverage, duplicates, and gaps in a directory",
		Flags:     analyzeFlags,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("analyze takes exactly one directory argument")
			}
			return runAnalyze(anlz, args[0])
		},
	}

	txFlags := ff.NewFlagSet("transactions").SetParent(rootFlags)
	csvDir := txFlags.StringLong("csv", "", "write per-file CSVs into this directory")
	txCmd := &ff.Command{
		Name:      "transactions",
		Usage:     "statement-auditor transactions [--csv dir] <directory>",
		ShortHelp: "extract transactions and reconcile running balances",
		Flags:     txFlags,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("transactions takes exactly one directory argument")
			}
			return runTransactions(anlz, args[0], *csvDir)
		},
	}

	renameFlags := ff.NewFlagSet("rename").SetParent(rootFlags)
	outputDir := renameFlags.StringLong("output", "", "output directory (default: <directory>/renamed)")
	dryRun := renameFlags.BoolLong("dry-run", "show what would be done without copying")
	renameCmd := &ff.Command{
		Name:      "rename",
		Usage:     "statement-auditor rename [--output dir] [--dry-run] <directory>",
		ShortHelp: "copy statements under canonical period-based names",
		Flags:     renameFlags,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("rename takes exactly one directory argument")
			}
			out := *outputDir
			if out == "" {
				out = filepath.Join(args[0], "renamed")
			}
			return runRename(anlz, args[0], out, *dryRun)
		},
	}

	serveFlags := ff.NewFlagSet("serve").SetParent(rootFlags)
	port := serveFlags.IntLong("port", 8080, "HTTP server port")
	serveCmd := &ff.Command{
		Name:      "serve",
		Usage:     "statement-auditor serve [--port 8080]",
		ShortHelp: "run the extraction and analysis HTTP API",
		Flags:     serveFlags,
		Exec: func(ctx context.Context, _ []string) error {
			return runServe(ctx, registry, *port)
		},
	}

	root := &ff.Command{
		Name:        "statement-auditor",
		Usage:       "statement-auditor <subcommand> [flags] [args]",
		ShortHelp:   "bank statement extraction and consistency analysis",
		Flags:       rootFlags,
		Subcommands: []*ff.Command{analyzeCmd, txCmd, renameCmd, serveCmd},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.Parse(os.Args[1:], ff.WithEnvVarPrefix("STATEMENT_AUDITOR")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root))
		if !errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	setupLogging(*verbose)

	if err := root.Run(ctx); err != nil {
		if errors.Is(err, ff.ErrHelp) || errors.Is(err, ff.ErrNoExec) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root))
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
}

func runAnalyze(anlz *analyzer.Analyzer, dir string) error {
	analysis, err := anlz.AnalyzeDirectory(dir)
	if err != nil {
		return err
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("STATEMENT ANALYSIS")
	fmt.Println(strings.Repeat("=", 60))

	for _, stmt := range analysis.Statements {
		if stmt.Error != "" {
			fmt.Printf("\n%s\n  ERROR: %s\n", stmt.FileName, stmt.Error)
			continue
		}
		fmt.Printf("\n%s [%s]\n  Period: %s -> %s\n",
			stmt.FileName, stmt.ParserName, stmt.StartDate, stmt.EndDate)
	}

	s := analysis.Summary
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total Files:          %d\n", s.TotalFiles)
	fmt.Printf("Continuous Period:    %s -> %s\n", s.ContinuousPeriodStart, s.ContinuousPeriodEnd)
	fmt.Printf("Total Days Covered:   %d\n", s.TotalDaysCovered)

	if len(s.Duplicates) > 0 {
		fmt.Println("\n" + strings.Repeat("=", 60))
		fmt.Println("DUPLICATE FILES (identical content)")
		fmt.Println(strings.Repeat("=", 60))
		for _, dup := range s.Duplicates {
			fmt.Printf("Signature: %s...\n", dup.Signature[:16])
			for _, f := range dup.Files {
				fmt.Printf("  - %s\n", f)
			}
		}
	}

	if len(s.Breaks) > 0 {
		fmt.Println("\n" + strings.Repeat("=", 60))
		fmt.Println("STATEMENT BREAKS (gaps > 1 day)")
		fmt.Println(strings.Repeat("=", 60))
		for _, brk := range s.Breaks {
			fmt.Printf("Gap of %d days:\n", brk.GapDays)
			fmt.Printf("  %s ends %s\n", brk.PreviousFile, brk.PreviousEndDate)
			fmt.Printf("  %s starts %s\n", brk.NextFile, brk.NextStartDate)
		}
	} else if s.TotalFiles > 0 {
		fmt.Println("\nNo breaks in statement continuity.")
	}

	return nil
}

func runTransactions(anlz *analyzer.Analyzer, dir, csvDir string) error {
	byFile, err := anlz.ExtractDirectoryTransactions(dir)
	if err != nil {
		return err
	}

	var all []models.Transaction
	fileNames := make([]string, 0, len(byFile))
	for name, transactions := range byFile {
		fileNames = append(fileNames, name)
		all = append(all, transactions...)
	}
	sort.Strings(fileNames)

	if len(all) == 0 {
		fmt.Println("No transactions found.")
		return nil
	}

	fmt.Println("=== TRANSACTION SUMMARY ===")
	fmt.Printf("Total transactions: %d\n", len(all))
	fmt.Printf("Total files processed: %d\n", len(byFile))

	byType := map[models.TransactionType]int{}
	byCurrency := map[string]int{}
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, tx := range all {
		byType[tx.Type]++
		byCurrency[tx.Currency]++
		if tx.Type == models.TypeDebit {
			totalDebit = totalDebit.Add(tx.Amount)
		} else {
			totalCredit = totalCredit.Add(tx.Amount)
		}
	}

	fmt.Println("\nBy type:")
	for _, t := range []models.TransactionType{models.TypeCredit, models.TypeDebit} {
		if byType[t] > 0 {
			fmt.Printf("  %s: %d\n", t, byType[t])
		}
	}

	currencies := make([]string, 0, len(byCurrency))
	for c := range byCurrency {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	fmt.Println("\nBy currency:")
	for _, c := range currencies {
		fmt.Printf("  %s: %d\n", c, byCurrency[c])
	}

	fmt.Println("\nTotal amounts:")
	fmt.Printf("  Debits: EUR %s\n", totalDebit.StringFixed(2))
	fmt.Printf("  Credits: EUR %s\n", totalCredit.StringFixed(2))
	fmt.Printf("  Net: EUR %s\n", totalCredit.Sub(totalDebit).StringFixed(2))

	fmt.Println("\n=== BALANCE ANALYSIS ===")
	var reconciled []models.Transaction
	for _, name := range fileNames {
		report := analyzer.AnalyzeBalances(byFile[name])
		if report == nil {
			continue
		}
		reconciled = append(reconciled, byFile[name]...)
		fmt.Printf("\n%s:\n", name)
		printBalanceReport(report)
	}

	if len(reconciled) > 0 {
		unique := analyzer.DeduplicateTransactions(reconciled)
		removed := len(reconciled) - len(unique)
		if report := analyzer.AnalyzeBalances(analyzer.SortByDate(unique)); report != nil {
			fmt.Println("\n=== AGGREGATE BALANCE ANALYSIS ===")
			fmt.Printf("  Total transactions collected: %d\n", len(reconciled))
			if removed > 0 {
				fmt.Printf("  Duplicates removed: %d (from overlapping files)\n", removed)
			}
			fmt.Printf("  Unique transactions analyzed: %d\n", len(unique))
			printBalanceReport(report)
			fmt.Printf("  Total debits: EUR %s\n", report.TotalDebits.StringFixed(2))
			fmt.Printf("  Total credits: EUR %s\n", report.TotalCredits.StringFixed(2))
		}
	}

	var fx []models.Transaction
	for _, tx := range all {
		if tx.OriginalCurrency != "" {
			fx = append(fx, tx)
		}
	}
	if len(fx) > 0 {
		fmt.Printf("\nForeign currency transactions: %d\n", len(fx))
		for i, tx := range fx {
			if i == 5 {
				break
			}
			rate := ""
			if tx.ExchangeRate != nil {
				rate = tx.ExchangeRate.String()
			}
			amt := ""
			if tx.OriginalAmount != nil {
				amt = tx.OriginalAmount.String()
			}
			fmt.Printf("  %s: %s %s @ %s = EUR %s\n",
				tx.Date, amt, tx.OriginalCurrency, rate, tx.Amount.StringFixed(2))
		}
	}

	if csvDir != "" {
		if err := os.MkdirAll(csvDir, 0o755); err != nil {
			return fmt.Errorf("create csv directory %q: %w", csvDir, err)
		}
		for _, name := range fileNames {
			base := strings.TrimSuffix(name, filepath.Ext(name)) + ".csv"
			path := filepath.Join(csvDir, base)
			if err := writer.WriteToFile(path, byFile[name]); err != nil {
				return err
			}
			log.Info().Str("file", path).Int("count", len(byFile[name])).Msg("csv written")
		}
	}

	return nil
}

func printBalanceReport(r *analyzer.BalanceReport) {
	fmt.Printf("  Period: %s to %s\n", r.EarliestDate, r.LatestDate)
	fmt.Printf("  Starting balance (stated): EUR %s\n", r.StartingBalance.StringFixed(2))
	fmt.Printf("  Ending balance (stated): EUR %s\n", r.EndingBalance.StringFixed(2))
	fmt.Printf("  Calculated ending balance: EUR %s\n", r.CalculatedEnding.StringFixed(2))
	fmt.Printf("  Ending balance discrepancy: EUR %s\n", r.Discrepancy.StringFixed(2))
	if !r.Discrepancy.IsZero() {
		fmt.Println("    [WARNING] Discrepancy detected!")
	}
}

func runRename(anlz *analyzer.Analyzer, dir, outputDir string, dryRun bool) error {
	analysis, err := anlz.AnalyzeDirectory(dir)
	if err != nil {
		return err
	}

	stats, err := renamer.RenameStatements(analysis, outputDir, dryRun)
	if err != nil {
		return err
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Files copied:  %d\n", stats.Copied)
	fmt.Printf("Files skipped: %d\n", stats.Skipped)
	fmt.Printf("Errors:        %d\n", stats.Errors)

	if stats.Errors > 0 {
		return fmt.Errorf("%d files failed to copy", stats.Errors)
	}
	return nil
}

func runServe(ctx context.Context, registry *parser.Registry, port int) error {
	server := api.NewServer(registry)
	app := server.App()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", port))
	}()
	log.Info().Int("port", port).Msg("server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return app.Shutdown()
	}
}
