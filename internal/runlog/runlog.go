// Package runlog records every computed report in logs/report-log.csv.
package runlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Entry is one report run.
type Entry struct {
	Timestamp time.Time
	CompanyID string
	Period    string // MM-YYYY
	Accounts  int
	Warnings  int
	Duration  time.Duration
}

// Header is the CSV header of report-log.csv.
var Header = []string{"timestamp", "company_id", "period", "accounts", "warnings", "duration_ms"}

// File is the run log path relative to the project root.
const File = "logs/report-log.csv"

const (
	colTimestamp = 0
	colCompany   = 1
	colPeriod    = 2
	colAccounts  = 3
	colWarnings  = 4
	colDuration  = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, len(Header))
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colCompany] = e.CompanyID
	row[colPeriod] = e.Period
	row[colAccounts] = strconv.Itoa(e.Accounts)
	row[colWarnings] = strconv.Itoa(e.Warnings)
	row[colDuration] = strconv.FormatInt(e.Duration.Milliseconds(), 10)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != len(Header) {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	accounts, err := strconv.Atoi(record[colAccounts])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing accounts %q: %w", record[colAccounts], err)
	}
	warnings, err := strconv.Atoi(record[colWarnings])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing warnings %q: %w", record[colWarnings], err)
	}
	ms, err := strconv.ParseInt(record[colDuration], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing duration_ms %q: %w", record[colDuration], err)
	}

	return Entry{
		Timestamp: ts,
		CompanyID: record[colCompany],
		Period:    record[colPeriod],
		Accounts:  accounts,
		Warnings:  warnings,
		Duration:  time.Duration(ms) * time.Millisecond,
	}, nil
}

// Append writes entries to <root>/logs/report-log.csv, creating the file and
// header if needed.
func Append(root string, entries ...Entry) error {
	path := filepath.Join(root, File)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening report log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(Header); err != nil {
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

// Read returns all entries of <root>/logs/report-log.csv, or none if the
// file does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, File))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening report log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading report log CSV: %w", err)
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
