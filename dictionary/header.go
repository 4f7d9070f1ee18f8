package dictionary

import (
	"fmt"
)

// CheckHeader verifies that the managed columns of a worksheet header row are the
// data dictionary columns, in order. Extension column titles are not checked but
// must not duplicate a managed column.
func CheckHeader(header Row) error {
	if len(header) == 0 {
		return fmt.Errorf("Missing/invalid header row")
	}

	index := map[string]int{}
	for i, v := range header {
		k := normalise(v)
		if k == "" {
			continue
		}

		if _, ok := index[k]; ok {
			return fmt.Errorf("Duplicate column name '%s'", clean(v))
		}

		index[k] = i
	}

	for i, h := range Header {
		if len(header) <= i || normalise(header[i]) != normalise(h) {
			return fmt.Errorf("Missing '%s' column", h)
		}
	}

	return nil
}
