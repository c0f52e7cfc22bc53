// Package tabular parses delimited schedule files into header-keyed records.
package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

const utf8BOM = "\ufeff"

// Options controls how a table is read.
type Options struct {
	// Delimiter separates fields. Zero means comma.
	Delimiter rune
}

// Table is a parsed delimited file. Header order is authoritative; values are
// always accessed by column name.
type Table struct {
	header  []string
	columns map[string]int
	rows    [][]string
	skipped int
}

// Record is one row of a Table, keyed by header name.
type Record struct {
	table  *Table
	values []string
}

// Parse reads a delimited file whose first non-blank line is the header.
// Quoted fields may contain the delimiter, newlines and doubled quotes.
// Blank rows are skipped and a malformed row is dropped without failing
// the rest of the file.
func Parse(r io.Reader) (*Table, error) {
	return ParseWithOptions(r, Options{})
}

func ParseWithOptions(r io.Reader, opts Options) (*Table, error) {
	comma := opts.Delimiter
	if comma == 0 {
		comma = ','
	}

	table := &Table{columns: make(map[string]int)}
	records := &recordSplitter{br: bufio.NewReader(r)}

	for {
		record, err := records.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading table: %w", err)
		}

		row, ok := splitRecord(record, comma)
		if !ok {
			records.skipped++
			continue
		}

		if isBlank(row) {
			continue
		}

		if table.header == nil {
			table.setHeader(row)
			continue
		}

		table.rows = append(table.rows, table.normalize(row))
	}
	table.skipped = records.skipped

	if table.header == nil {
		return nil, errors.New("table has no header row")
	}

	return table, nil
}

// maxRecordLines bounds how far a quoted field may run across line breaks
// before its opening line is treated as malformed.
const maxRecordLines = 32

// recordSplitter cuts the input into logical records. A record is one line,
// or several when a quoted field spans line breaks. A line whose quote never
// closes is dropped and reading resumes on the line after it.
type recordSplitter struct {
	br      *bufio.Reader
	pending []string
	skipped int
}

func (s *recordSplitter) line() (string, error) {
	if len(s.pending) > 0 {
		l := s.pending[0]
		s.pending = s.pending[1:]
		return l, nil
	}
	l, err := s.br.ReadString('\n')
	if errors.Is(err, io.EOF) && l != "" {
		return l, nil
	}
	return l, err
}

func (s *recordSplitter) next() (string, error) {
	for {
		first, err := s.line()
		if err != nil {
			return "", err
		}
		if strings.Count(first, `"`)%2 == 0 {
			return first, nil
		}

		lines := []string{first}
		closed := false
		for !closed && len(lines) < maxRecordLines {
			l, err := s.line()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return "", err
			}
			lines = append(lines, l)
			closed = strings.Count(l, `"`)%2 == 1
		}
		if closed {
			return strings.Join(lines, ""), nil
		}

		s.skipped++
		rest := make([]string, 0, len(lines)-1+len(s.pending))
		rest = append(rest, lines[1:]...)
		s.pending = append(rest, s.pending...)
	}
}

// splitRecord splits one logical record into fields. Records without quotes
// take the fast path; quoted ones go through encoding/csv on their own so a
// stray quote cannot spill into the next record.
func splitRecord(record string, comma rune) ([]string, bool) {
	record = strings.TrimRight(record, "\r\n")
	if !strings.Contains(record, `"`) {
		return strings.Split(record, string(comma)), true
	}

	reader := csv.NewReader(strings.NewReader(record))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	row, err := reader.Read()
	if err != nil {
		return nil, false
	}
	if _, err := reader.Read(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return row, true
}

func (t *Table) setHeader(row []string) {
	t.header = make([]string, len(row))
	for i, name := range row {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.TrimSpace(name)
		t.header[i] = name
		if _, dup := t.columns[name]; !dup {
			t.columns[name] = i
		}
	}
}

// normalize pads short rows and truncates long ones to the header width.
func (t *Table) normalize(row []string) []string {
	if len(row) == len(t.header) {
		return row
	}
	out := make([]string, len(t.header))
	copy(out, row)
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Header returns the column names in file order.
func (t *Table) Header() []string {
	return t.header
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Len is the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Skipped is the number of malformed rows dropped while parsing.
func (t *Table) Skipped() int {
	return t.skipped
}

// Records returns every data row in file order.
func (t *Table) Records() []Record {
	records := make([]Record, len(t.rows))
	for i, row := range t.rows {
		records[i] = Record{table: t, values: row}
	}
	return records
}

// Each calls fn for every row without materializing the record slice.
func (t *Table) Each(fn func(Record)) {
	for _, row := range t.rows {
		fn(Record{table: t, values: row})
	}
}

// Get returns the raw value for the named column, or "" when the column is
// absent.
func (r Record) Get(name string) string {
	v, _ := r.Lookup(name)
	return v
}

func (r Record) Lookup(name string) (string, bool) {
	i, ok := r.table.columns[name]
	if !ok || i >= len(r.values) {
		return "", false
	}
	return strings.TrimSpace(r.values[i]), true
}

// Map copies the record into a plain header -> value map.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.table.header))
	for name, i := range r.table.columns {
		m[name] = strings.TrimSpace(r.values[i])
	}
	return m
}

// Unmarshal binds every row onto out, a pointer to a slice of structs tagged
// with `csv:"column"`. Untagged or missing columns are left at zero value.
func (t *Table) Unmarshal(out interface{}) error {
	if len(t.rows) == 0 {
		return nil
	}
	if err := gocsv.UnmarshalCSV(&tableReader{table: t}, out); err != nil {
		return fmt.Errorf("error binding table: %w", err)
	}
	return nil
}

// tableReader replays an already parsed table through gocsv.CSVReader.
// Cells are trimmed the same way Record.Lookup trims them.
type tableReader struct {
	table *Table
	pos   int
}

func (tr *tableReader) Read() ([]string, error) {
	if tr.pos == 0 {
		tr.pos++
		return tr.table.header, nil
	}
	if tr.pos > len(tr.table.rows) {
		return nil, io.EOF
	}
	raw := tr.table.rows[tr.pos-1]
	tr.pos++
	row := make([]string, len(raw))
	for i, v := range raw {
		row[i] = strings.TrimSpace(v)
	}
	return row, nil
}

func (tr *tableReader) ReadAll() ([][]string, error) {
	all := make([][]string, 0, len(tr.table.rows)+1)
	for {
		row, err := tr.Read()
		if errors.Is(err, io.EOF) {
			return all, nil
		}
		all = append(all, row)
	}
}
