// Package runlog records one CSV row per processed job.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp    time.Time
	JobID        string
	Source       string
	AccountType  string
	Status       string
	Tables       int
	Transactions int
	TablesKey    string
	LedgerKey    string // empty when the ledger was not written
	Error        string
}

// Header is the CSV header for run-log.csv.
const Header = "timestamp,job_id,source,account_type,status,tables,transactions,tables_key,ledger_key,error"

const (
	numFields       = 10
	logDir          = "logs"
	logFile         = "logs/run-log.csv"
	colTimestamp    = 0
	colJobID        = 1
	colSource       = 2
	colAccountType  = 3
	colStatus       = 4
	colTables       = 5
	colTransactions = 6
	colTablesKey    = 7
	colLedgerKey    = 8
	colError        = 9
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colJobID] = e.JobID
	row[colSource] = e.Source
	row[colAccountType] = e.AccountType
	row[colStatus] = e.Status
	row[colTables] = strconv.Itoa(e.Tables)
	row[colTransactions] = strconv.Itoa(e.Transactions)
	row[colTablesKey] = e.TablesKey
	row[colLedgerKey] = e.LedgerKey
	row[colError] = e.Error
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	tables, err := strconv.Atoi(record[colTables])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing tables %q: %w", record[colTables], err)
	}
	txns, err := strconv.Atoi(record[colTransactions])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing transactions %q: %w", record[colTransactions], err)
	}

	return Entry{
		Timestamp:    ts,
		JobID:        record[colJobID],
		Source:       record[colSource],
		AccountType:  record[colAccountType],
		Status:       record[colStatus],
		Tables:       tables,
		Transactions: txns,
		TablesKey:    record[colTablesKey],
		LedgerKey:    record[colLedgerKey],
		Error:        record[colError],
	}, nil
}

// Append writes entries to <projectRoot>/logs/run-log.csv, creating the file
// and header if needed.
func Append(projectRoot string, entries []Entry) error {
	dir := filepath.Join(projectRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(projectRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <projectRoot>/logs/run-log.csv, or nil if the
// file does not exist.
func Read(projectRoot string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(projectRoot, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
