package extractor

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one spreadsheet data row keyed by header column name.
type Row map[string]string

// Get returns the trimmed cell value for a column, or "" when absent.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// ExtractRows reads the first sheet of an xlsx workbook. The first row is
// taken as the header; every following row becomes a name→cell map.
func ExtractRows(filePath string) (columns []string, rows []Row, err error) {
	wb, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook %q: %w", filePath, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook %q has no sheets", filePath)
	}

	raw, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	for _, name := range raw[0] {
		columns = append(columns, strings.TrimSpace(name))
	}

	for _, cells := range raw[1:] {
		row := make(Row, len(columns))
		empty := true
		for i, name := range columns {
			if name == "" {
				continue
			}
			var v string
			if i < len(cells) {
				v = cells[i]
			}
			row[name] = v
			if strings.TrimSpace(v) != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}

	return columns, rows, nil
}
