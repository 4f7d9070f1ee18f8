package dictionary

import (
	"strings"
)

// FieldDescriptor is the exported metadata for a single CRM field. Name is the
// identity used to match a field to a worksheet row across runs.
type FieldDescriptor struct {
	Label    string
	Name     string
	HelpText string
	DataType string
}

// Row is a single worksheet row. Columns 0-4 are managed by the data dictionary,
// anything after that belongs to whoever edits the worksheet.
type Row []string

// Color identifies the background applied to a reconciled row.
type Color int

const (
	Removed Color = iota + 1
	Added
)

// Format is an instruction to colour the first Columns cells of a worksheet row.
// Row is the 0-based index into the written rows (i.e. including the header).
type Format struct {
	Row     int
	Color   Color
	Columns int
}

// Result is the merged worksheet for a single object along with the formatting
// to apply once the rows have been written. Changed lists (in ascending order)
// the rows whose managed columns were generated from the field list. Every other
// row is carried forward exactly as it was read.
type Result struct {
	Rows    []Row
	Formats []Format
	Changed []int

	Updated int
	Added   int
	Removed int
	Skipped int
}

const (
	ColLabel = iota
	ColName
	ColAPIName
	ColHelpText
	ColDataType

	// Number of managed columns
	Managed
)

// Header is the first row of every data dictionary worksheet.
var Header = Row{"Field Label", "Field Name", "API Name", "Help Text", "Data Type"}

// Identities returns the API names of the rows marked with the colour, in row
// order. A cold start result has no formatting and every row after the header
// counts as Added.
func (r Result) Identities(c Color) []string {
	list := []string{}

	if len(r.Formats) == 0 && r.Added > 0 {
		if c == Added {
			for _, row := range r.Rows[1:] {
				list = append(list, row.Identity())
			}
		}

		return list
	}

	for _, f := range r.Formats {
		if f.Color == c && f.Row > 0 && f.Row < len(r.Rows) {
			list = append(list, r.Rows[f.Row].Identity())
		}
	}

	return list
}

func (c Color) String() string {
	switch c {
	case Removed:
		return "REMOVED"

	case Added:
		return "ADDED"

	default:
		return "UNKNOWN"
	}
}

// Identity returns the API name column of the row, or "" if the row is too short
// or the cell is blank.
func (r Row) Identity() string {
	if len(r) <= ColAPIName {
		return ""
	}

	return strings.TrimSpace(r[ColAPIName])
}

func (f FieldDescriptor) row() Row {
	return Row{f.Label, f.Name, f.Name, f.HelpText, f.DataType}
}

func clean(v string) string {
	return strings.TrimSpace(v)
}

func normalise(v string) string {
	return strings.ToLower(strings.ReplaceAll(v, " ", ""))
}
