package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/ledgerline/pkg/config"
	"github.com/yurifrl/ledgerline/pkg/csv"
	"github.com/yurifrl/ledgerline/pkg/ledger"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/money"
	"github.com/yurifrl/ledgerline/pkg/parser"
	"github.com/yurifrl/ledgerline/pkg/pdftext"
	"github.com/yurifrl/ledgerline/pkg/reconcile"
	"github.com/yurifrl/ledgerline/pkg/service"
)

var (
	cliFilters filters
	cfgFile    string
	logLevel   string
	rootDir    string
	dump       bool
)

var rootCmd = &cobra.Command{
	Use:           "ledgerline",
	Short:         "Turn bank and card statements into continuous per-account ledgers",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// setup loads the registry and builds the logger every command shares.
func setup(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ledgerline",
		Level:           level,
	})
	logger.Debug("loaded config", "file", cfg.File(), "accounts", len(cfg.Accounts))
	return cfg, logger, nil
}

func newProcessor(cmd *cobra.Command) (*service.Processor, *config.Config, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	return service.NewProcessor(cfg, pdftext.New(), logger), cfg, nil
}

var processCmd = &cobra.Command{
	Use:   "process [account...]",
	Short: "Parse new statements of the given accounts, or of every account",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, err := newProcessor(cmd)
		if err != nil {
			return err
		}
		results, err := p.ProcessAll(cmd.Context(), args)
		for _, r := range results {
			line := fmt.Sprintf("%s: %d processed, %d skipped, %d failed", r.Account, r.Processed, r.Skipped, r.Failed)
			if r.Failed > 0 {
				warning(line)
			} else {
				success(line)
			}
		}
		return err
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <account> <statement.pdf>",
	Short: "Parse and reconcile one statement without writing anything",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		acct, err := cfg.Account(args[0])
		if err != nil {
			return err
		}
		doc, err := pdftext.New().Extract(args[1])
		if err != nil {
			return err
		}
		statements, err := parser.New(logger, cfg).Parse(acct, doc)
		if err != nil {
			return err
		}
		if dump {
			pp.Println(statements)
			return nil
		}

		failed := 0
		for _, st := range statements {
			header(st.Label())
			report := reconcile.Build(st)
			for _, item := range report.Items {
				line := fmt.Sprintf("%s: expected %s, computed %s", item.Check, item.Expected.StringFixed(2), item.Computed.StringFixed(2))
				if item.Status == reconcile.Failed {
					failure(line)
				} else {
					success(line)
				}
			}
			failed += report.FailedCount()
			txs, _ := st.Ledger()
			if err := csv.Write(os.Stdout, txs, nil); err != nil {
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d reconciliation checks failed", failed)
		}
		return nil
	},
}

var fillCmd = &cobra.Command{
	Use:   "fill <account> <YYYY-MM>",
	Short: "Build a month that has no statement from the account's bulk export",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cfg, err := newProcessor(cmd)
		if err != nil {
			return err
		}
		acct, err := cfg.Account(args[0])
		if err != nil {
			return err
		}
		ym, err := ledger.ParseYearMonth(args[1])
		if err != nil {
			return err
		}
		meta, err := p.FillMonth(cmd.Context(), acct, ym)
		if err != nil {
			return err
		}
		success(fmt.Sprintf("%s %s: %s -> %s", acct.ID, ym, money.FormatAmount(meta.BeginningBalance), money.FormatAmount(meta.EndingBalance)))
		return nil
	},
}

var fillPendingCmd = &cobra.Command{
	Use:   "fill-pending <account>",
	Short: "Write a balancing transaction for months with metadata but no transactions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cfg, err := newProcessor(cmd)
		if err != nil {
			return err
		}
		acct, err := cfg.Account(args[0])
		if err != nil {
			return err
		}
		months, err := p.FillPending(cmd.Context(), acct)
		for _, ym := range months {
			success(fmt.Sprintf("%s %s filled", acct.ID, ym))
		}
		if len(months) == 0 && err == nil {
			info(fmt.Sprintf("%s has no pending months", acct.ID))
		}
		return err
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [account...]",
	Short: "List the statements the next process run would parse (dry-run)",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cfg, err := newProcessor(cmd)
		if err != nil {
			return err
		}
		accounts, err := cfg.Select(args)
		if err != nil {
			return err
		}
		for _, acct := range accounts {
			files, err := p.Plan(acct)
			if err != nil {
				failure(fmt.Sprintf("%s: %v", acct.ID, err))
				continue
			}
			header(fmt.Sprintf("%s (%s): %d new", acct.ID, acct.Format, len(files)))
			for _, f := range files {
				info(f)
			}
		}
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <account> <YYYY-MM-DD>",
	Short: "Print the balance of an account at the end of a day",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := loadLedger(cmd, args[0])
		if err != nil {
			return err
		}
		day, err := money.ParseDate(args[1], models.DateLayoutCSV)
		if err != nil {
			return err
		}
		balance, warnings := l.BalanceAt(day)
		for _, w := range warnings {
			warning(w)
		}
		fmt.Println(money.FormatAmount(balance))
		return nil
	},
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions <account>",
	Short: "Print the ledger of an account as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := cliFilters.toFilter()
		if err != nil {
			return err
		}
		l, err := loadLedger(cmd, args[0])
		if err != nil {
			return err
		}

		txs := l.Transactions
		if !filter.Start.IsZero() || !filter.End.IsZero() {
			start, end := filter.Start, filter.End
			first, last, _ := l.Span()
			if start.IsZero() {
				start = first
			}
			if end.IsZero() {
				end = last
			}
			var warnings []string
			if txs, warnings, err = l.TransactionsInRange(start, end); err != nil {
				return err
			}
			for _, w := range warnings {
				warning(w)
			}
		}
		return csv.Write(os.Stdout, txs, filter.Func())
	},
}

func loadLedger(cmd *cobra.Command, key string) (*ledger.Ledger, error) {
	cfg, _, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	acct, err := cfg.Account(key)
	if err != nil {
		return nil, err
	}
	return ledger.Load(acct.Path(cfg.Root), ledger.Range{})
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter registry and the directory skeleton of every account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := cfgFile
		if path == "" {
			path = config.FileName + ".yaml"
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := os.WriteFile(path, []byte(config.Starter), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			success("wrote " + path)
		}
		cfgFile = path

		p, cfg, err := newProcessor(cmd)
		if err != nil {
			return err
		}
		for _, acct := range cfg.Accounts {
			if err := p.Init(acct); err != nil {
				return err
			}
			success(fmt.Sprintf("%s ready at %s", acct.ID, acct.Path(cfg.Root)))
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective account registry",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n%s", cfg.File(), out)
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Registry file (default is ledgerline.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Directory holding the account folders")

	parseCmd.Flags().BoolVar(&dump, "dump", false, "Dump the parsed statements instead of printing rows")

	// Filter flags
	transactionsCmd.Flags().StringVar(&cliFilters.startDate, "start", "", "Start date (YYYY-MM-DD)")
	transactionsCmd.Flags().StringVar(&cliFilters.endDate, "end", "", "End date (YYYY-MM-DD)")
	transactionsCmd.Flags().StringVar(&cliFilters.minAmount, "min", "", "Minimum amount")
	transactionsCmd.Flags().StringVar(&cliFilters.maxAmount, "max", "", "Maximum amount")
	transactionsCmd.Flags().StringVar(&cliFilters.payee, "payee", "", "Filter by description (case insensitive)")

	rootCmd.AddCommand(processCmd, parseCmd, fillCmd, fillPendingCmd, planCmd, balanceCmd, transactionsCmd, initCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		failure(err.Error())
		os.Exit(1)
	}
}
