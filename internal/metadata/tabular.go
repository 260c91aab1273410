package metadata

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/phylo-tools/strainfilter/internal/config"
	"github.com/phylo-tools/strainfilter/internal/model"
)

// TabularSource streams records from a TSV or CSV metadata file. The
// delimiter is inferred from the file extension (.tsv and .txt are
// tab-separated, anything else comma-separated). Each Stream call reopens
// the file, so both passes see identical records in identical order.
type TabularSource struct {
	path     string
	delim    rune
	columns  []string
	idColumn string
	idIndex  int
}

// NewTabular opens a metadata file, reads its header, and resolves the
// identifier column from the given candidates (DefaultIDColumns when empty).
// A header without any candidate column is a configuration error.
func NewTabular(path string, idColumns []string) (*TabularSource, error) {
	if len(idColumns) == 0 {
		idColumns = DefaultIDColumns
	}

	s := &TabularSource{path: path, delim: delimiterFor(path)}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: open")
	}
	defer f.Close() //nolint:errcheck

	r := s.newReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "metadata: read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	s.columns = header

	s.idIndex = -1
	for _, cand := range idColumns {
		for i, col := range header {
			if col == cand {
				s.idColumn, s.idIndex = col, i
				break
			}
		}
		if s.idIndex >= 0 {
			break
		}
	}
	if s.idIndex < 0 {
		return nil, eris.Wrapf(config.ErrInvalid,
			"metadata: none of the id columns %v found in header %v", idColumns, header)
	}

	return s, nil
}

func delimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		return '\t'
	default:
		return ','
	}
}

func (s *TabularSource) newReader(f io.Reader) *csv.Reader {
	r := csv.NewReader(f)
	r.Comma = s.delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1 // allow variable fields
	return r
}

// Columns returns the header, in file order.
func (s *TabularSource) Columns() []string { return s.columns }

// IDColumn returns the resolved identifier column name.
func (s *TabularSource) IDColumn() string { return s.idColumn }

// Stream reads the file from the top and sends one Record per data row.
func (s *TabularSource) Stream(ctx context.Context) (<-chan model.Record, <-chan error) {
	recCh := make(chan model.Record, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		f, err := os.Open(s.path)
		if err != nil {
			errCh <- eris.Wrap(err, "metadata: open")
			return
		}
		defer f.Close() //nolint:errcheck

		r := s.newReader(f)
		if _, err := r.Read(); err != nil { // header
			errCh <- eris.Wrap(err, "metadata: read header")
			return
		}

		seq := 0
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "metadata: context cancelled")
				return
			}

			row, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "metadata: read row")
				return
			}

			rec := s.record(row, seq)
			seq++

			select {
			case recCh <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "metadata: context cancelled")
				return
			}
		}
	}()

	return recCh, errCh
}

// record maps one row onto the header. Short rows leave trailing columns
// empty; extra cells are ignored.
func (s *TabularSource) record(row []string, seq int) model.Record {
	fields := make(map[string]string, len(s.columns))
	for i, col := range s.columns {
		if i < len(row) {
			fields[col] = row[i]
		}
	}
	return model.Record{ID: fields[s.idColumn], Fields: fields, Seq: seq}
}
