package metadata

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/phylo-tools/strainfilter/internal/config"
	"github.com/phylo-tools/strainfilter/internal/model"
)

// XLSXSource streams records from one sheet of a spreadsheet export. The
// workbook is loaded once at construction; Stream iterates the in-memory
// sheet, so traversals are trivially restartable and identical.
type XLSXSource struct {
	sheet    *xlsx.Sheet
	columns  []string
	idColumn string
	idIndex  int
}

// NewXLSX opens a workbook and prepares the first sheet (row 0 is the
// header) for streaming.
func NewXLSX(path string, idColumns []string) (*XLSXSource, error) {
	if len(idColumns) == 0 {
		idColumns = DefaultIDColumns
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Wrap(config.ErrInvalid, "metadata: workbook has no sheets")
	}

	s := &XLSXSource{sheet: f.Sheets[0]}
	if len(s.sheet.Rows) == 0 {
		return nil, eris.Wrap(config.ErrInvalid, "metadata: sheet has no header row")
	}

	header := rowToStrings(s.sheet.Rows[0])
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

// Columns returns the header, in sheet order.
func (s *XLSXSource) Columns() []string { return s.columns }

// IDColumn returns the resolved identifier column name.
func (s *XLSXSource) IDColumn() string { return s.idColumn }

// Stream sends one Record per data row, skipping the header.
func (s *XLSXSource) Stream(ctx context.Context) (<-chan model.Record, <-chan error) {
	recCh := make(chan model.Record, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		seq := 0
		for i, row := range s.sheet.Rows {
			if i == 0 {
				continue
			}
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "metadata: context cancelled")
				return
			}

			cells := rowToStrings(row)
			fields := make(map[string]string, len(s.columns))
			for j, col := range s.columns {
				if j < len(cells) {
					fields[col] = cells[j]
				}
			}

			rec := model.Record{ID: fields[s.idColumn], Fields: fields, Seq: seq}
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

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
