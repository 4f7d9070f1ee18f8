package dictionary

// Reconcile merges the current field list for an object into the existing
// worksheet rows.
//
// Existing rows are kept in order: rows that match a field by API name have the
// managed columns rewritten and any extension columns carried forward, rows that
// no longer match a field are kept as is and marked Removed. Fields that are not
// already on the worksheet are appended in field list order and marked Added.
// Rows without an API name are carried forward untouched and counted as skipped.
//
// If there are no existing rows the result is the header followed by one row per
// field, without any formatting.
//
// Fields with a blank API name are ignored and a duplicated API name produces a
// single row (in the position of the first occurrence, with the values of the
// last).
func Reconcile(object string, fields []FieldDescriptor, existing []Row) Result {
	if len(existing) == 0 {
		return populate(fields)
	}

	lookup := byName(fields)
	result := Result{
		Rows:    []Row{copyRow(existing[0])},
		Formats: []Format{},
		Changed: []int{},
	}

	seen := map[string]bool{}
	added := []Format{}

	for _, row := range existing[1:] {
		index := len(result.Rows)
		id := row.Identity()

		if id == "" {
			result.Rows = append(result.Rows, copyRow(row))
			result.Skipped++
			continue
		}

		if f, ok := lookup[id]; ok {
			updated := f.row()
			if len(row) > Managed {
				updated = append(updated, row[Managed:]...)
			}

			result.Rows = append(result.Rows, updated)
			result.Changed = append(result.Changed, index)
			result.Updated++
			seen[id] = true
			continue
		}

		columns := Managed
		if len(row) > columns {
			columns = len(row)
		}

		result.Rows = append(result.Rows, copyRow(row))
		result.Formats = append(result.Formats, Format{Row: index, Color: Removed, Columns: columns})
		result.Removed++
	}

	for _, f := range fields {
		id := clean(f.Name)
		if id == "" || seen[id] {
			continue
		}

		seen[id] = true

		added = append(added, Format{Row: len(result.Rows), Color: Added, Columns: Managed})
		result.Changed = append(result.Changed, len(result.Rows))
		result.Rows = append(result.Rows, lookup[id].row())
		result.Added++
	}

	result.Formats = append(result.Formats, added...)

	return result
}

func populate(fields []FieldDescriptor) Result {
	lookup := byName(fields)
	seen := map[string]bool{}
	result := Result{
		Rows:    []Row{copyRow(Header)},
		Formats: []Format{},
		Changed: []int{0},
	}

	for _, f := range fields {
		id := clean(f.Name)
		if id == "" || seen[id] {
			continue
		}

		seen[id] = true

		result.Changed = append(result.Changed, len(result.Rows))
		result.Rows = append(result.Rows, lookup[id].row())
		result.Added++
	}

	return result
}

// byName maps the API name of each field to its descriptor. The last occurrence
// of a duplicated name wins.
func byName(fields []FieldDescriptor) map[string]FieldDescriptor {
	lookup := map[string]FieldDescriptor{}
	for _, f := range fields {
		if id := clean(f.Name); id != "" {
			lookup[id] = f
		}
	}

	return lookup
}

func copyRow(row Row) Row {
	r := make(Row, len(row))
	copy(r, row)

	return r
}
