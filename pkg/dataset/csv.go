package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// missingTokens are read as missing cells
var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
}

// ReadCSV loads a CSV file with a header row
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	t, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return t, nil
}

// ParseCSV reads a CSV stream with a header row
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row")
	}

	return FromRecords(records[0], records[1:])
}

// FromRecords builds a table from raw string cells, inferring each column's
// kind: numeric when every present cell parses as a float, categorical otherwise
func FromRecords(header []string, rows [][]string) (*Table, error) {
	cols := make([]*Series, len(header))
	for j, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", j)
		}

		missing := make([]bool, len(rows))
		raw := make([]string, len(rows))
		numeric := true
		floats := make([]float64, len(rows))

		for i, row := range rows {
			if len(row) != len(header) {
				return nil, fmt.Errorf("row %d has %d fields, expected %d", i+1, len(row), len(header))
			}
			cell := strings.TrimSpace(row[j])
			if missingTokens[cell] {
				missing[i] = true
				continue
			}
			raw[i] = cell
			if numeric {
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					numeric = false
					continue
				}
				floats[i] = v
			}
		}

		if numeric {
			cols[j] = &Series{Name: name, Kind: Numeric, Floats: floats, Missing: missing}
		} else {
			cols[j] = &Series{Name: name, Kind: Categorical, Strings: raw, Missing: missing}
		}
	}
	return New(cols...)
}

// WriteCSV writes the table with a header row; missing cells are empty
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns()); err != nil {
		return err
	}
	row := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, c := range t.cols {
			row[j] = c.Text(i)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
