// Package pipeline turns one analysis job into a tables dump and a ledger.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cleared-dev/stmtqbo/internal/accounts"
	"github.com/cleared-dev/stmtqbo/internal/analysis"
	"github.com/cleared-dev/stmtqbo/internal/blocks"
	"github.com/cleared-dev/stmtqbo/internal/config"
	"github.com/cleared-dev/stmtqbo/internal/extract"
	"github.com/cleared-dev/stmtqbo/internal/fields"
	"github.com/cleared-dev/stmtqbo/internal/metrics"
	"github.com/cleared-dev/stmtqbo/internal/model"
	"github.com/cleared-dev/stmtqbo/internal/ofx"
	"github.com/cleared-dev/stmtqbo/internal/store"
	"github.com/cleared-dev/stmtqbo/internal/tablecsv"
)

// Request identifies a job and the document it was run on.
type Request struct {
	JobID string
	// SourceKey is the analysed document's store key. Empty means the
	// configured default.
	SourceKey string
	// Metadata overrides the source document's stored metadata.
	Metadata map[string]string
}

// Result summarises a run. A run whose ledger could not be written still
// returns its tables dump and transactions, with LedgerErr set and
// LedgerKey empty.
type Result struct {
	OK           bool
	JobID        string
	SourceKey    string
	Account      model.Account
	Tables       int
	Transactions []model.Transaction
	TablesKey    string
	LedgerKey    string
	LedgerErr    error
}

// Processor carries everything one run needs.
type Processor struct {
	Provider analysis.Provider
	Store    store.Store
	Config   *config.Config
	Logger   *log.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
	UID      func() string
}

// New returns a Processor using the wall clock and random TRNUIDs.
func New(p analysis.Provider, s store.Store, cfg *config.Config, logger *log.Logger, m *metrics.Metrics) *Processor {
	return &Processor{
		Provider: p,
		Store:    s,
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Now:      time.Now,
	}
}

// NewExtractor builds an extractor from the parsing config. A zero assumed
// year means the year of now.
func NewExtractor(cfg config.ParsingConfig, now time.Time) *extract.Extractor {
	year := cfg.AssumedYear
	if year == 0 {
		year = now.Year()
	}
	amounts := &fields.AmountParser{
		MinReferenceDigits: cfg.MinReferenceDigits,
		MaxMagnitude:       cfg.MaxAmountDecimal(),
	}
	ex := extract.New(fields.NewDateParser(year), amounts)
	if cfg.DebitCreditPrecedence != "" {
		ex.Precedence = extract.Precedence(cfg.DebitCreditPrecedence)
	}
	return ex
}

// Run fetches the job's blocks, writes the tables dump and then the ledger.
// Fetch and dump failures are returned as errors; a ledger failure is not.
func (p *Processor) Run(ctx context.Context, req Request) (Result, error) {
	start := p.Now()
	res, err := p.run(ctx, req, start)

	status := metrics.StatusOK
	switch {
	case err != nil:
		status = metrics.StatusError
	case res.LedgerErr != nil:
		status = metrics.StatusPartial
	}
	p.Metrics.ObserveRun(status, p.Now().Sub(start))
	return res, err
}

func (p *Processor) run(ctx context.Context, req Request, now time.Time) (Result, error) {
	logger := p.Logger.With("job", req.JobID)

	all, pages, err := analysis.FetchAll(ctx, p.Provider, req.JobID)
	if err != nil {
		return Result{}, err
	}
	logger.Info("fetched blocks", "pages", pages, "blocks", len(all))

	sourceKey := req.SourceKey
	if sourceKey == "" {
		sourceKey = p.Config.Output.SourceKey
	}
	meta := p.sourceMetadata(ctx, logger, sourceKey)
	for k, v := range req.Metadata {
		if v != "" {
			meta[k] = v
		}
	}
	acct := accounts.Resolve(meta, p.Config)
	logger.Info("resolved account", "type", acct.Type, "account", acct.AccountID)

	ex := NewExtractor(p.Config.Parsing, now)
	var tables []model.Table
	var txns []model.Transaction
	for t := range blocks.Tables(all) {
		tables = append(tables, t)
		ex.OnSkip = func(row int, cells []string) {
			logger.Debug("skipped row", "table", t.Index, "row", row, "cells", cells)
		}
		found, stats := ex.Extract(t.Grid)
		logger.Info("extracted table", "table", t.Index, "page", t.Page, "rows", stats.Rows, "transactions", len(found))
		p.Metrics.AddSkipped(metrics.ReasonBlank, stats.Blank)
		p.Metrics.AddSkipped(metrics.ReasonUnparseable, stats.Unparseable)
		txns = append(txns, found...)
	}
	p.Metrics.AddTables(len(tables))
	p.Metrics.AddTransactions(len(txns))

	keys := accounts.OutputKeys(p.Config.Output.Prefix, accounts.BaseName(meta[accounts.MetaOriginalName], sourceKey))
	res := Result{
		JobID:        req.JobID,
		SourceKey:    sourceKey,
		Account:      acct,
		Tables:       len(tables),
		Transactions: txns,
		TablesKey:    keys.Tables,
	}

	var dump bytes.Buffer
	if err := tablecsv.Write(&dump, tables); err != nil {
		return Result{}, fmt.Errorf("writing tables dump: %w", err)
	}
	if err := p.Store.Put(ctx, store.Object{Key: keys.Tables, ContentType: accounts.TablesContentType, Body: dump.Bytes()}); err != nil {
		return Result{}, fmt.Errorf("storing tables dump: %w", err)
	}
	logger.Info("wrote tables dump", "key", keys.Tables, "tables", len(tables))

	if err := p.writeLedger(ctx, keys.Ledger, acct, txns, now); err != nil {
		logger.Error("ledger not written", "key", keys.Ledger, "err", err)
		p.Metrics.IncLedgerFailure()
		res.LedgerErr = err
		res.OK = true
		return res, nil
	}
	logger.Info("wrote ledger", "key", keys.Ledger, "transactions", len(txns))
	res.LedgerKey = keys.Ledger
	res.OK = true
	return res, nil
}

// sourceMetadata returns the source document's metadata, or an empty map
// when it cannot be read.
func (p *Processor) sourceMetadata(ctx context.Context, logger *log.Logger, key string) map[string]string {
	meta, err := p.Store.Head(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Debug("source has no metadata", "source", key)
		} else {
			logger.Warn("reading source metadata", "source", key, "err", err)
		}
		return map[string]string{}
	}
	if meta == nil {
		return map[string]string{}
	}
	return maps.Clone(meta)
}

func (p *Processor) writeLedger(ctx context.Context, key string, acct model.Account, txns []model.Transaction, now time.Time) error {
	text, err := ofx.Render(ofx.Ledger{Account: acct, Transactions: txns}, ofx.Options{
		Now: func() time.Time { return now },
		UID: p.UID,
	})
	if err != nil {
		return err
	}
	return p.Store.Put(ctx, store.Object{
		Key:         key,
		ContentType: accounts.LedgerContentType,
		Body:        []byte(text),
		Metadata: map[string]string{
			accounts.MetaAccountType:      string(acct.Type),
			accounts.MetaAccountNumber:    acct.AccountID,
			accounts.MetaTransactionCount: strconv.Itoa(len(txns)),
		},
	})
}
