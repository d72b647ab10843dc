package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/stmtqbo/internal/accounts"
	"github.com/cleared-dev/stmtqbo/internal/analysis"
	"github.com/cleared-dev/stmtqbo/internal/config"
	"github.com/cleared-dev/stmtqbo/internal/metrics"
	"github.com/cleared-dev/stmtqbo/internal/model"
	"github.com/cleared-dev/stmtqbo/internal/ofx"
	"github.com/cleared-dev/stmtqbo/internal/store"
	"github.com/cleared-dev/stmtqbo/internal/tablecsv"
)

var fixedNow = time.Date(2024, 6, 30, 8, 0, 0, 0, time.UTC)

// tableBlocks renders grids as TABLE/CELL/WORD blocks, one table per grid.
func tableBlocks(page int, grids ...model.Grid) []model.Block {
	var out []model.Block
	seq := 0
	next := func(prefix string) string {
		seq++
		return fmt.Sprintf("p%d-%s%d", page, prefix, seq)
	}
	for _, g := range grids {
		var cells []string
		for r, row := range g {
			for c, text := range row {
				cell := model.Block{ID: next("c"), Type: model.BlockCell, Page: page, RowIndex: r + 1, ColumnIndex: c + 1}
				if text != "" {
					w := model.Block{ID: next("w"), Type: model.BlockWord, Page: page, Text: text}
					out = append(out, w)
					cell.Relationships = []model.Relationship{{Type: model.RelationshipChild, IDs: []string{w.ID}}}
				}
				out = append(out, cell)
				cells = append(cells, cell.ID)
			}
		}
		out = append(out, model.Block{
			ID:            next("t"),
			Type:          model.BlockTable,
			Page:          page,
			Relationships: []model.Relationship{{Type: model.RelationshipChild, IDs: cells}},
		})
	}
	return out
}

type fakeProvider struct {
	pages []analysis.Page
	err   error
}

func (f *fakeProvider) GetPage(_ context.Context, _, token string) (analysis.Page, error) {
	if f.err != nil {
		return analysis.Page{}, f.err
	}
	i := 0
	if token != "" {
		fmt.Sscanf(token, "%d", &i)
	}
	p := f.pages[i]
	if i+1 < len(f.pages) {
		p.NextToken = fmt.Sprint(i + 1)
	}
	return p, nil
}

// failingStore rejects puts whose key has the given suffix.
type failingStore struct {
	*store.Memory
	suffix string
}

func (s *failingStore) Put(ctx context.Context, obj store.Object) error {
	if strings.HasSuffix(obj.Key, s.suffix) {
		return errors.New("disk full")
	}
	return s.Memory.Put(ctx, obj)
}

func newProcessor(p analysis.Provider, s store.Store) *Processor {
	cfg := config.Default()
	proc := New(p, s, cfg, log.New(io.Discard), metrics.New())
	proc.Now = func() time.Time { return fixedNow }
	proc.UID = func() string { return "feedfacefeedface" }
	return proc
}

var statementGrid = model.Grid{
	{"Date", "Desc", "Debit", "Credit"},
	{"1/2", "Coffee Shop", "5.00", ""},
	{"1/3", "Payroll", "", "1000.00"},
	{"Total", "", "", ""},
	{"", "", "", ""},
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Put(ctx, store.Object{
		Key:      "incoming/jan.pdf",
		Metadata: map[string]string{"OriginalName": "Jan Statement (1).pdf"},
	}))

	provider := &fakeProvider{pages: []analysis.Page{
		{Blocks: tableBlocks(1, statementGrid)},
		{Blocks: tableBlocks(2, model.Grid{{"no", "dates"}, {"here", "1.00"}})},
	}}
	proc := newProcessor(provider, mem)

	res, err := proc.Run(ctx, Request{JobID: "job-1", SourceKey: "incoming/jan.pdf"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.NoError(t, res.LedgerErr)
	assert.Equal(t, 2, res.Tables)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "-5", res.Transactions[0].Amount.String())
	assert.Equal(t, 2024, res.Transactions[0].Date.Year())
	assert.Equal(t, "parsed/Jan_Statement_1.tables.csv", res.TablesKey)
	assert.Equal(t, "parsed/Jan_Statement_1.qbo", res.LedgerKey)
	assert.Equal(t, model.AccountTypeBank, res.Account.Type)

	dump, err := mem.Get(ctx, res.TablesKey)
	require.NoError(t, err)
	assert.Equal(t, accounts.TablesContentType, dump.ContentType)
	tables, err := tablecsv.Read(strings.NewReader(string(dump.Body)))
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, 2, tables[1].Page)
	assert.Equal(t, statementGrid[:3], tables[0].Grid[:3])

	ledger, err := mem.Get(ctx, res.LedgerKey)
	require.NoError(t, err)
	assert.Equal(t, accounts.LedgerContentType, ledger.ContentType)
	assert.Equal(t, map[string]string{"accounttype": "bank", "accountnumber": "000000000", "transactioncount": "2"}, ledger.Metadata)

	st, err := ofx.ParseStatement(string(ledger.Body))
	require.NoError(t, err)
	assert.Equal(t, "995", st.Balance.String())
	assert.Contains(t, string(ledger.Body), "<TRNUID>feedfacefeedface</TRNUID>")
	assert.Contains(t, string(ledger.Body), "<DTSERVER>20240630080000</DTSERVER>")

	snap := proc.Metrics.Snapshot()
	assert.Equal(t, float64(2), snap.Tables)
	assert.Equal(t, float64(2), snap.Transactions)
	assert.Equal(t, float64(1), snap.Blank)
	assert.Equal(t, float64(3), snap.Unparseable)
	assert.Equal(t, float64(1), proc.Metrics.Runs(metrics.StatusOK))
}

func TestRun_CreditCardFromMetadata(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Put(ctx, store.Object{
		Key:      "incoming/unknown.pdf",
		Metadata: map[string]string{"accounttype": "credit-card", "accountnumber": "4111"},
	}))

	grid := model.Grid{{"Date", "Description", "Amount"}, {"2024-02-01", "Dinner", "42.00"}}
	proc := newProcessor(&fakeProvider{pages: []analysis.Page{{Blocks: tableBlocks(1, grid)}}}, mem)

	res, err := proc.Run(ctx, Request{JobID: "job"})
	require.NoError(t, err)
	assert.Equal(t, "incoming/unknown.pdf", res.SourceKey)
	assert.Equal(t, model.AccountTypeCreditCard, res.Account.Type)
	assert.Equal(t, "4111", res.Account.AccountID)
	assert.Equal(t, "parsed/unknown.qbo", res.LedgerKey)

	ledger, err := mem.Get(ctx, res.LedgerKey)
	require.NoError(t, err)
	body := string(ledger.Body)
	assert.Contains(t, body, "<CCACCTFROM><ACCTID>4111</ACCTID></CCACCTFROM>")
	assert.Contains(t, body, "<TRNAMT>-42.00</TRNAMT>")
}

func TestRun_RequestMetadataOverrides(t *testing.T) {
	proc := newProcessor(&fakeProvider{pages: []analysis.Page{{}}}, store.NewMemory())
	res, err := proc.Run(context.Background(), Request{
		JobID:    "job",
		Metadata: map[string]string{accounts.MetaAccountType: "credit-card", accounts.MetaAccountNumber: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeCreditCard, res.Account.Type)
	assert.Equal(t, "000000000", res.Account.AccountID)
}

func TestRun_NoTables(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	proc := newProcessor(&fakeProvider{pages: []analysis.Page{{Blocks: []model.Block{{ID: "w", Type: model.BlockWord, Text: "hi"}}}}}, mem)

	res, err := proc.Run(ctx, Request{JobID: "job", SourceKey: "incoming/empty.pdf"})
	require.NoError(t, err)
	assert.Zero(t, res.Tables)
	assert.Empty(t, res.Transactions)

	dump, err := mem.Get(ctx, "parsed/empty.tables.csv")
	require.NoError(t, err)
	assert.Equal(t, tablecsv.BOM+tablecsv.NoTables+"\r\n", string(dump.Body))

	ledger, err := mem.Get(ctx, "parsed/empty.qbo")
	require.NoError(t, err)
	assert.Contains(t, string(ledger.Body), "<DTSTART>20240630</DTSTART><DTEND>20240630</DTEND>")
}

func TestRun_LedgerFailureIsPartialSuccess(t *testing.T) {
	ctx := context.Background()
	mem := &failingStore{Memory: store.NewMemory(), suffix: accounts.LedgerSuffix}
	proc := newProcessor(&fakeProvider{pages: []analysis.Page{{Blocks: tableBlocks(1, statementGrid)}}}, mem)

	res, err := proc.Run(ctx, Request{JobID: "job", SourceKey: "incoming/a.pdf"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	require.Error(t, res.LedgerErr)
	assert.Contains(t, res.LedgerErr.Error(), "disk full")
	assert.Empty(t, res.LedgerKey)
	assert.Len(t, res.Transactions, 2)

	_, err = mem.Get(ctx, "parsed/a.tables.csv")
	assert.NoError(t, err)
	assert.Equal(t, float64(1), proc.Metrics.Snapshot().LedgerFailures)
	assert.Equal(t, float64(1), proc.Metrics.Runs(metrics.StatusPartial))
}

func TestRun_DumpFailureIsError(t *testing.T) {
	mem := &failingStore{Memory: store.NewMemory(), suffix: accounts.TablesSuffix}
	proc := newProcessor(&fakeProvider{pages: []analysis.Page{{}}}, mem)

	_, err := proc.Run(context.Background(), Request{JobID: "job"})
	assert.ErrorContains(t, err, "storing tables dump")
	assert.Equal(t, float64(1), proc.Metrics.Runs(metrics.StatusError))
}

func TestRun_ProviderError(t *testing.T) {
	proc := newProcessor(&fakeProvider{err: analysis.ErrJobNotFound}, store.NewMemory())
	_, err := proc.Run(context.Background(), Request{JobID: "nope"})
	assert.ErrorIs(t, err, analysis.ErrJobNotFound)
}

func TestNewExtractor(t *testing.T) {
	p := config.Default().Parsing
	ex := NewExtractor(p, fixedNow)
	txns, _ := ex.Extract(model.Grid{{"Date", "Desc", "Amount"}, {"3/4", "x", "1"}})
	require.Len(t, txns, 1)
	assert.Equal(t, 2024, txns[0].Date.Year())

	p.AssumedYear = 2019
	p.DebitCreditPrecedence = "credit"
	ex = NewExtractor(p, fixedNow)
	assert.Equal(t, "credit", string(ex.Precedence))
	txns, _ = ex.Extract(model.Grid{{"Date", "Desc", "Amount"}, {"3/4", "x", "1"}})
	require.Len(t, txns, 1)
	assert.Equal(t, 2019, txns[0].Date.Year())
}
