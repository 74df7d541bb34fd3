// Package parser turns the page text of a bank or card statement into
// models.Statement values, one variant per institution layout.
package parser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/ledgerline/pkg/config"
	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/models"
)

// Document is the extracted text of one statement file.
type Document struct {
	Name  string
	Pages []string
}

// Text joins every page.
func (d Document) Text() string {
	return strings.Join(d.Pages, "\n")
}

// Lines splits every page into lines, in page order.
func (d Document) Lines() []string {
	var out []string
	for _, page := range d.Pages {
		out = append(out, strings.Split(page, "\n")...)
	}
	return out
}

// FirstPage returns the text of page one, or "" for an empty document.
func (d Document) FirstPage() string {
	if len(d.Pages) == 0 {
		return ""
	}
	return d.Pages[0]
}

// Format reads one institution's statement layout. A document may hold more
// than one statement.
type Format interface {
	Name() string
	Parse(doc Document) ([]*models.Statement, error)
}

type Parser struct {
	logger   *log.Logger
	registry *config.Config
}

// New returns a parser. registry lets formats that recover the account
// number from the text check it against the registered accounts; it may be
// nil.
func New(logger *log.Logger, registry *config.Config) *Parser {
	return &Parser{
		logger:   logger,
		registry: registry,
	}
}

// For selects the format registered for acct.
func (p *Parser) For(acct config.Account) (Format, error) {
	base := variant{logger: p.logger, account: acct}
	switch acct.Format {
	case config.FormatAppleCard:
		return &appleCard{variant: base}, nil
	case config.FormatChaseChecking:
		return &chaseChecking{variant: base}, nil
	case config.FormatChaseSapphire:
		return &chaseSapphire{variant: base}, nil
	case config.FormatDiscoverCard:
		return &discoverCard{variant: base, peers: p.peers(acct, config.FormatDiscoverCard, config.FormatDiscoverSavings)}, nil
	case config.FormatDiscoverSavings:
		return &discoverSavings{variant: base, peers: p.peers(acct, config.FormatDiscoverCard, config.FormatDiscoverSavings)}, nil
	case config.FormatPNC:
		return &pnc{variant: base}, nil
	case config.FormatSoFi:
		return &sofi{variant: base, peers: p.peers(acct, config.FormatSoFi)}, nil
	default:
		return nil, fmt.Errorf("unknown statement format %q for account %s", acct.Format, acct.ID)
	}
}

// Parse reads doc with the format registered for acct and stamps account
// name, source and sign convention on every statement it yields.
func (p *Parser) Parse(acct config.Account, doc Document) ([]*models.Statement, error) {
	format, err := p.For(acct)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("parsing statement", "file", doc.Name, "format", format.Name(), "pages", len(doc.Pages))

	statements, err := format.Parse(doc)
	if err != nil {
		return nil, errs.InFile(err, doc.Name)
	}
	for _, st := range statements {
		owner := p.owner(acct, st.AccountNumber)
		st.AccountNumber = owner.Number
		st.AccountName = owner.Name()
		st.Source = doc.Name
		st.Sign = owner.Sign
		st.MetadataOnly = owner.MetadataOnly()
		st.Metadata.AccountNumber = owner.Number
		st.Metadata.SetNote("source", doc.Name)
	}
	return statements, nil
}

// owner resolves the account a statement belongs to. Documents covering
// several accounts yield statements for registered peers.
func (p *Parser) owner(acct config.Account, number string) config.Account {
	if number == "" || number == acct.Number || p.registry == nil {
		return acct
	}
	if other, ok := p.registry.ByNumber(number); ok {
		return other
	}
	return acct
}

func (p *Parser) peers(acct config.Account, formats ...string) []config.Account {
	if p.registry == nil {
		return []config.Account{acct}
	}
	out := p.registry.Peers(formats...)
	for _, a := range out {
		if a.Number == acct.Number {
			return out
		}
	}
	return append(out, acct)
}

// variant holds what every format needs.
type variant struct {
	logger  *log.Logger
	account config.Account
}

func (v variant) discarded(file, region string, count int) {
	if count == 0 {
		return
	}
	v.logger.Debug("discarded unmatched lines", "file", file, "region", region, "count", count)
}
