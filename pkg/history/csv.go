package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/otherjamesbrown/prepbrief/pkg/continuity"
	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
)

// Supported CSV encodings.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

// CSVSource reads records from a spreadsheet exported as CSV.
type CSVSource struct {
	Path     string
	Encoding string
	Columns  Columns
}

// NewCSVSource creates a CSVSource with the default column headers.
func NewCSVSource(path, enc string) *CSVSource {
	return &CSVSource{Path: path, Encoding: enc, Columns: DefaultColumns()}
}

// Snapshot reads the whole file.
func (s *CSVSource) Snapshot(ctx context.Context) ([]continuity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open history export: %w", err)
	}
	defer f.Close()

	table, err := ReadTable(f, s.Encoding)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return table.ToRecords(s.Columns)
}

// ReadTable decodes CSV from r. The first record is the header. Rows may
// have differing numbers of fields.
func ReadTable(r io.Reader, enc string) (Table, error) {
	decoder, err := decoderFor(enc)
	if err != nil {
		return Table{}, err
	}

	cr := csv.NewReader(transform.NewReader(r, decoder))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return Table{}, err
	}
	if len(rows) == 0 {
		return Table{}, nil
	}
	return Table{Header: rows[0], Rows: rows[1:]}, nil
}

func decoderFor(enc string) (transform.Transformer, error) {
	var e encoding.Encoding
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", EncodingUTF8, "utf8":
		e = unicode.UTF8BOM
	case EncodingWindows1252, "cp1252":
		e = charmap.Windows1252
	default:
		return nil, fmt.Errorf("%w: unsupported csv encoding %q", pberrors.ErrValidation, enc)
	}
	return e.NewDecoder(), nil
}
