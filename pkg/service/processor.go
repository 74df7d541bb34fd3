// Package service drives batches: it turns the new statement files of each
// registered account into processed months, and fills the months that have
// no statement.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/yurifrl/ledgerline/pkg/config"
	"github.com/yurifrl/ledgerline/pkg/crossfill"
	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/parser"
	"github.com/yurifrl/ledgerline/pkg/pdftext"
	"github.com/yurifrl/ledgerline/pkg/reconcile"
	"github.com/yurifrl/ledgerline/pkg/store"
)

// Result counts what one account batch did.
type Result struct {
	Account   string
	Processed int
	Skipped   int
	Failed    int
	Months    []models.YearMonth
}

type Processor struct {
	config    *config.Config
	logger    *log.Logger
	extractor pdftext.Extractor
	parser    *parser.Parser
}

func NewProcessor(cfg *config.Config, extractor pdftext.Extractor, logger *log.Logger) *Processor {
	logger = logger.With("run", uuid.NewString())
	return &Processor{
		config:    cfg,
		logger:    logger,
		extractor: extractor,
		parser:    parser.New(logger, cfg),
	}
}

// Layout returns the directory layout of acct.
func (p *Processor) Layout(acct config.Account) store.Layout {
	return store.NewLayout(acct.Path(p.config.Root))
}

// ProcessAll processes the accounts named by keys, or all of them. A failing
// account is logged and the batch moves on.
func (p *Processor) ProcessAll(ctx context.Context, keys []string) ([]Result, error) {
	accounts, err := p.config.Select(keys)
	if err != nil {
		return nil, err
	}
	var results []Result
	for _, acct := range accounts {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := p.ProcessAccount(ctx, acct)
		if err != nil {
			p.logger.Error("failed to process account", "account", acct.ID, "error", err)
		}
		results = append(results, res)
	}
	return results, nil
}

// ProcessAccount parses every statement file of acct not yet recorded in
// its statements_db.csv. Per-file failures are logged and counted; the
// database is saved once at the end.
func (p *Processor) ProcessAccount(ctx context.Context, acct config.Account) (Result, error) {
	res := Result{Account: acct.ID}
	layout := p.Layout(acct)
	logger := p.logger.With("account", acct.ID)

	db, err := store.LoadStatementsDB(layout.StatementsDB())
	if err != nil {
		return res, err
	}
	files, err := layout.StatementFiles()
	if err != nil {
		return res, err
	}

	var export *crossfill.Export
	if acct.MetadataOnly() {
		if export, err = p.LoadExports(acct); err != nil {
			logger.Warn("failed to load exports", "error", err)
		}
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			break
		}
		raw := relative(layout.Dir, file)
		if db.Has(raw) {
			logger.Debug("already processed", "file", raw)
			res.Skipped++
			continue
		}

		months, err := p.processFile(acct, file, export, logger)
		if err != nil {
			logger.Warn("failed to process statement", "file", raw, "error", err)
			res.Failed++
			continue
		}
		for _, m := range months {
			db.Add(store.Processed{
				AccountNumber: m.account,
				Month:         int(m.ym.Month),
				Year:          m.ym.Year,
				RawPath:       raw,
				ProcessedPath: m.path,
			})
			res.Months = append(res.Months, m.ym)
		}
		res.Processed++
		logger.Info("processed statement", "file", raw, "months", len(months))
	}

	if res.Processed > 0 {
		if err := db.Save(); err != nil {
			return res, fmt.Errorf("failed to save statements db: %w", err)
		}
	}
	return res, ctx.Err()
}

type written struct {
	account string
	ym      models.YearMonth
	path    string
}

// staged is one statement ready to be written.
type staged struct {
	owner   config.Account
	layout  store.Layout
	ym      models.YearMonth
	meta    models.Metadata
	txs     []models.Transaction
	pending bool
}

// processFile writes the months of a document only when every statement in
// it passed its checks; a failing statement leaves nothing on disk.
func (p *Processor) processFile(acct config.Account, file string, export *crossfill.Export, logger *log.Logger) ([]written, error) {
	doc, err := p.extractor.Extract(file)
	if err != nil {
		return nil, err
	}
	statements, err := p.parser.Parse(acct, doc)
	if err != nil {
		return nil, err
	}

	for _, st := range statements {
		if err := reconcile.Check(st); err != nil {
			return nil, err
		}
	}

	months := make([]staged, 0, len(statements))
	for _, st := range statements {
		m := staged{owner: acct, ym: st.Metadata.Month()}
		if other, ok := p.config.ByNumber(st.AccountNumber); ok {
			m.owner = other
		}
		if st.MetadataOnly {
			if m.pending, err = p.fillFromExport(st, m.owner, export, logger); err != nil {
				return nil, err
			}
		}
		m.layout = p.Layout(m.owner)
		if err := p.claimMonth(m.layout, m.ym, st.Source); err != nil {
			return nil, err
		}
		m.txs, m.meta = st.Ledger()
		months = append(months, m)
	}

	out := make([]written, 0, len(months))
	for _, m := range months {
		if err := store.WriteMetadata(m.layout.Metadata(m.ym), m.meta); err != nil {
			return nil, err
		}
		if !m.pending {
			if err := store.WriteTransactions(m.layout.Transactions(m.ym), m.txs); err != nil {
				return nil, err
			}
		}
		out = append(out, written{account: m.owner.Number, ym: m.ym, path: relative(m.layout.Dir, m.layout.ProcessedMonth(m.ym))})
	}
	return out, nil
}

// fillFromExport sets the rows of a metadata-only statement from the
// account's bulk export. pending is true when the export cannot cover the
// statement; the month is then written without transactions for FillPending.
func (p *Processor) fillFromExport(st *models.Statement, acct config.Account, export *crossfill.Export, logger *log.Logger) (pending bool, err error) {
	rows, ok := crossfill.Fill(export, st.Metadata)
	if !ok {
		first, last, _ := export.Span()
		logger.Warn("export does not cover statement, transactions pending",
			"file", st.Source, "period", st.Metadata.Period(), "export_first", first, "export_last", last)
		return true, nil
	}
	var groups []reconcile.CategoryGroup
	if acct.Format == config.FormatDiscoverCard {
		groups = reconcile.DiscoverCategories
	}
	if err := reconcile.CheckFill(rows, st.Metadata, groups); err != nil {
		return false, errs.InFile(err, st.Source)
	}
	st.Rows = rows
	return false, nil
}

// claimMonth refuses to overwrite a month written from another document.
func (p *Processor) claimMonth(layout store.Layout, ym models.YearMonth, source string) error {
	path := layout.Metadata(ym)
	existing, err := store.ReadMetadata(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if prev := existing.Notes["source"]; prev != "" && prev != source {
		return &errs.DuplicateFileError{Period: ym.String(), Kind: "statement", First: prev, Second: source}
	}
	return nil
}

// LoadExports reads and merges the bulk exports matched by acct's globs.
// Relative globs are resolved against the account directory. It returns nil
// when the account has none.
func (p *Processor) LoadExports(acct config.Account) (*crossfill.Export, error) {
	dir := acct.Path(p.config.Root)
	var exports []*crossfill.Export
	for _, pattern := range acct.Exports {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(dir, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid export pattern %q: %w", pattern, err)
		}
		for _, path := range matches {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			export, err := crossfill.LoadExport(f, filepath.Base(path), acct.CSV)
			f.Close()
			if err != nil {
				return nil, err
			}
			p.logger.Debug("loaded export", "account", acct.ID, "file", path, "rows", len(export.Rows))
			exports = append(exports, export)
		}
	}
	if len(exports) == 0 {
		return nil, nil
	}
	return crossfill.Merge(exports...), nil
}

// Init creates the directory skeleton of acct and its details.json. An
// existing details.json is left alone.
func (p *Processor) Init(acct config.Account) error {
	layout := p.Layout(acct)
	if err := layout.Skeleton(); err != nil {
		return err
	}
	if store.Exists(layout.Details()) {
		p.logger.Debug("details exist", "account", acct.ID, "path", layout.Details())
		return nil
	}
	if acct.OpenDate == "" {
		p.logger.Warn("account has no open_date, details.json will need one", "account", acct.ID)
	}
	return store.WriteDetails(layout.Details(), store.Details{
		Name:     acct.Name(),
		AcctN:    acct.Number,
		OpenDate: acct.OpenDate,
	})
}

// Plan lists the statement files of acct that the next run would process.
func (p *Processor) Plan(acct config.Account) ([]string, error) {
	layout := p.Layout(acct)
	db, err := store.LoadStatementsDB(layout.StatementsDB())
	if err != nil {
		return nil, err
	}
	files, err := layout.StatementFiles()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, file := range files {
		if raw := relative(layout.Dir, file); !db.Has(raw) {
			out = append(out, raw)
		}
	}
	return out, nil
}

func relative(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
