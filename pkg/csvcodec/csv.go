// Package csvcodec encodes flat string records to RFC 4180 CSV and back.
// Values are carried as strings; callers format dates and amounts before
// encoding and parse them after decoding. Decoding is exact: every byte of
// every value, carriage returns included, survives a round trip.
package csvcodec

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

var (
	ErrNoColumns      = errors.New("csv_no_columns")
	ErrHeaderMismatch = errors.New("csv_header_mismatch")
	ErrMalformedRow   = errors.New("csv_malformed_row")
)

// emptyRow is how a row made of one empty value is written. A bare line
// break would read back as a skipped blank line.
const emptyRow = `""` + "\n"

// Column maps a record key to its header label.
type Column struct {
	Key   string
	Label string
}

// Record is one row keyed by Column.Key. Missing keys encode as empty.
type Record map[string]string

// Encode writes a header row of labels followed by one row per record.
func Encode(w io.Writer, records []Record, columns []Column) error {
	if len(columns) == 0 {
		return ErrNoColumns
	}

	writer := csv.NewWriter(w)
	writeRow := func(row []string) error {
		if len(row) == 1 && row[0] == "" {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}
			_, err := io.WriteString(w, emptyRow)
			return err
		}
		return writer.Write(row)
	}

	header := lo.Map(columns, func(c Column, _ int) string { return c.Label })
	if err := writeRow(header); err != nil {
		return err
	}
	for _, record := range records {
		row := lo.Map(columns, func(c Column, _ int) string { return record[c.Key] })
		if err := writeRow(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func EncodeString(records []Record, columns []Column) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, records, columns); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Decode reads CSV produced by Encode. The header row must carry exactly the
// column labels, in order. Blank lines between records are skipped.
func Decode(r io.Reader, columns []Column) ([]Record, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}

	reader := newRowReader(r)

	header, err := reader.next()
	if errors.Is(err, io.EOF) {
		return nil, errors.Wrap(ErrHeaderMismatch, "missing header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if len(header) != len(columns) {
		return nil, errors.Wrapf(ErrHeaderMismatch, "got %d columns, want %d", len(header), len(columns))
	}
	for i, c := range columns {
		if header[i] != c.Label {
			return nil, errors.Wrapf(ErrHeaderMismatch, "column %d: got %q, want %q", i, header[i], c.Label)
		}
	}

	records := make([]Record, 0)
	for {
		row, err := reader.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row")
		}
		if len(row) != len(columns) {
			return nil, errors.Wrapf(ErrMalformedRow, "line %d: got %d fields, want %d", reader.line, len(row), len(columns))
		}
		record := make(Record, len(columns))
		for i, c := range columns {
			record[c.Key] = row[i]
		}
		records = append(records, record)
	}
	return records, nil
}

func DecodeString(text string, columns []Column) ([]Record, error) {
	return Decode(strings.NewReader(text), columns)
}

// rowReader splits RFC 4180 input into rows. Unlike csv.Reader it keeps
// carriage returns inside quoted fields. Outside quotes, LF, CRLF and a
// lone CR all end a record.
type rowReader struct {
	br    *bufio.Reader
	field bytes.Buffer
	line  int
}

func newRowReader(r io.Reader) *rowReader {
	return &rowReader{br: bufio.NewReader(r), line: 1}
}

// next returns the fields of the next non-blank row, or io.EOF.
func (r *rowReader) next() ([]string, error) {
	for {
		row, blank, err := r.read()
		if err != nil {
			return nil, err
		}
		if !blank {
			return row, nil
		}
	}
}

func (r *rowReader) read() (row []string, blank bool, err error) {
	r.field.Reset()
	var (
		fields      []string
		inQuotes    bool
		quotedField bool
		consumed    bool
	)
	startLine := r.line

	endRecord := func() ([]string, bool, error) {
		r.line++
		if len(fields) == 0 && r.field.Len() == 0 && !quotedField {
			return nil, true, nil
		}
		return append(fields, r.field.String()), false, nil
	}

	for {
		b, err := r.br.ReadByte()
		if errors.Is(err, io.EOF) {
			if inQuotes {
				return nil, false, errors.Wrapf(ErrMalformedRow, "line %d: unterminated quoted field", startLine)
			}
			if !consumed {
				return nil, false, io.EOF
			}
			return append(fields, r.field.String()), false, nil
		}
		if err != nil {
			return nil, false, err
		}
		consumed = true

		if inQuotes {
			if b != '"' {
				if b == '\n' {
					r.line++
				}
				r.field.WriteByte(b)
				continue
			}
			if peek, err := r.br.Peek(1); err == nil && peek[0] == '"' {
				_, _ = r.br.ReadByte()
				r.field.WriteByte('"')
				continue
			}
			inQuotes = false
			continue
		}

		switch b {
		case '"':
			if r.field.Len() > 0 || quotedField {
				return nil, false, errors.Wrapf(ErrMalformedRow, "line %d: bare quote in unquoted field", r.line)
			}
			inQuotes, quotedField = true, true
		case ',':
			fields = append(fields, r.field.String())
			r.field.Reset()
			quotedField = false
		case '\r':
			if peek, err := r.br.Peek(1); err == nil && peek[0] == '\n' {
				_, _ = r.br.ReadByte()
			}
			return endRecord()
		case '\n':
			return endRecord()
		default:
			if quotedField {
				return nil, false, errors.Wrapf(ErrMalformedRow, "line %d: text after closing quote", r.line)
			}
			r.field.WriteByte(b)
		}
	}
}
