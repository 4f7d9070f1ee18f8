package dictionary

import (
	"encoding/csv"
	"fmt"
	"io"
)

// MakeTSV writes the worksheet rows as a tab separated file. The header row is
// validated, rows without an API name are dropped and every record is padded to
// the width of the header.
func MakeTSV(f io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return fmt.Errorf("Empty sheet")
	}

	if err := CheckHeader(rows[0]); err != nil {
		return err
	}

	// ... header
	header := make([]string, len(rows[0]))
	for i, v := range rows[0] {
		header[i] = clean(v)
	}

	// ... records
	records := [][]string{}
	for _, row := range rows[1:] {
		if row.Identity() == "" {
			continue
		}

		width := len(header)
		if len(row) > width {
			width = len(row)
		}

		record := make([]string, width)
		for i, v := range row {
			record[i] = clean(v)
		}

		records = append(records, record)
	}

	// ... write to file
	w := csv.NewWriter(f)
	w.Comma = '\t'

	if err := w.Write(header); err != nil {
		return err
	}

	for _, record := range records {
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()

	return w.Error()
}
