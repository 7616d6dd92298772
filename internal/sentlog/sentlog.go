// Package sentlog keeps a spreadsheet of successfully sent emails.
package sentlog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/atomicfile"
	"github.com/shineum/mailscribe/internal/logging"
)

// DefaultPath is the log location relative to the working directory.
const DefaultPath = "logs/sent_emails.xlsx"

const sheetName = "Sheet1"

// Header is the first row of the sheet.
var Header = []string{"timestamp", "provider", "sender", "recipient", "subject", "body"}

// timestamp layouts accepted when reading; the first is used for writing.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

// Record is one sent email.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
}

// Log appends records to an .xlsx file. Appends are serialized within the
// process; the whole file is rewritten on each append.
type Log struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// Option configures a Log.
type Option func(*Log)

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New returns a Log at path, or DefaultPath when empty.
func New(path string, opts ...Option) *Log {
	if path == "" {
		path = DefaultPath
	}
	l := &Log{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the spreadsheet location.
func (l *Log) Path() string {
	return l.path
}

// Append adds rec at the end of the sheet, stamping it with the current UTC
// time when rec.Timestamp is zero. An unreadable existing file is replaced
// by a new sheet.
func (l *Log) Append(rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.readRows()
	if err != nil {
		slog.Warn("sent log unreadable, starting a new sheet",
			slog.String("path", l.path),
			logging.Err(err),
		)
		rows = nil
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, Header); err != nil {
		return l.persistErr(err)
	}
	next := 2
	for _, row := range dataRows(rows) {
		if err := setRow(f, next, row); err != nil {
			return l.persistErr(err)
		}
		next++
	}
	if err := setRow(f, next, rec.cells()); err != nil {
		return l.persistErr(err)
	}

	if err := atomicfile.WriteWith(l.path, 0o644, func(w io.Writer) error {
		return f.Write(w)
	}); err != nil {
		return l.persistErr(err)
	}
	return nil
}

// Records returns every logged record in insertion order. A missing file
// has no records.
func (l *Log) Records() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.readRows()
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "read sent log", Path: l.path, Err: err}
	}

	var out []Record
	for _, row := range dataRows(rows) {
		out = append(out, recordFromRow(row))
	}
	return out, nil
}

// readRows returns all rows of the first sheet, or nil when the file does
// not exist.
func (l *Log) readRows() ([][]string, error) {
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func (l *Log) persistErr(err error) error {
	return &apperr.PersistenceError{Op: "append sent log", Path: l.path, Err: err}
}

// dataRows drops the header row when present.
func dataRows(rows [][]string) [][]string {
	if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] == Header[0] {
		return rows[1:]
	}
	return rows
}

func setRow(f *excelize.File, row int, values []string) error {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

func (r Record) cells() []string {
	return []string{
		r.Timestamp.UTC().Format(timeLayouts[0]),
		r.Provider,
		r.Sender,
		r.Recipient,
		r.Subject,
		r.Body,
	}
}

func recordFromRow(row []string) Record {
	col := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	rec := Record{
		Provider:  col(1),
		Sender:    col(2),
		Recipient: col(3),
		Subject:   col(4),
		Body:      col(5),
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, col(0)); err == nil {
			rec.Timestamp = ts
			break
		}
	}
	return rec
}
