package gsheets

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/sheets/v4"

	"github.com/sfdict/sf-data-dictionary/dictionary"
)

const timestampFormat = "2006-01-02 15:04:05"

var logColumns = map[string]int{
	"timestamp": 0,
	"object":    1,
	"fields":    2,
	"updated":   3,
	"added":     4,
	"removed":   5,
	"skipped":   6,
	"error":     7,
}

// AppendLog appends a summary row for each object in the report to the log
// worksheet. The column order is taken from the existing header row if there is
// one.
func (s *Store) AppendLog(ctx context.Context, area string, report dictionary.Report) error {
	if _, err := sheetName(area); err != nil {
		return err
	}

	response, err := s.google.Spreadsheets.Values.Get(s.spreadsheet, area).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to retrieve column headers from log sheet (%w)", err)
	}

	index := logColumns
	if len(response.Values) > 0 {
		index = map[string]int{}
		for i, v := range response.Values[0] {
			k := normalise(fmt.Sprintf("%v", v))
			if _, ok := logColumns[k]; ok {
				index[k] = i
			}
		}

		s.log.Debug("log sheet column index", zap.Any("index", index))
	}

	rows := sheets.ValueRange{
		Values: logRows(index, report),
	}

	if _, err := s.google.Spreadsheets.Values.Append(s.spreadsheet, area, &rows).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("error writing log to Google Sheets (%w)", err)
	}

	return nil
}

func logRows(index map[string]int, report dictionary.Report) [][]interface{} {
	columns := 0
	for _, v := range index {
		if v >= columns {
			columns = v + 1
		}
	}

	timestamp := report.Finished.Format(timestampFormat)
	rows := [][]interface{}{}

	for _, o := range report.Outcomes {
		row := make([]interface{}, columns)
		for i := range row {
			row[i] = ""
		}

		set := func(k string, v interface{}) {
			if ix, ok := index[k]; ok {
				row[ix] = v
			}
		}

		set("timestamp", timestamp)
		set("object", o.Object)
		set("fields", o.Fields)
		set("updated", o.Updated)
		set("added", o.Added)
		set("removed", o.Removed)
		set("skipped", o.Skipped)

		if o.Err != nil {
			set("error", o.Err.Error())
		}

		rows = append(rows, row)
	}

	return rows
}

// PruneLog deletes log worksheet rows with a timestamp older than 'retention' days.
func (s *Store) PruneLog(ctx context.Context, area string, retention uint) error {
	name, err := sheetName(area)
	if err != nil {
		return err
	}

	sheet, err := s.getSheet(ctx, name)
	if err != nil {
		return err
	} else if sheet == nil {
		return fmt.Errorf("unable to identify worksheet for '%v'", area)
	}

	response, err := s.google.Spreadsheets.Values.Get(s.spreadsheet, area).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to retrieve data from log sheet (%w)", err)
	}

	before := cutoff(time.Now(), retention)
	list := []int{}

	s.log.Info("pruning log records", zap.String("before", before.Format("2006-01-02")))

	for row, record := range response.Values {
		if len(record) == 0 {
			continue
		}

		timestamp, err := time.ParseInLocation(timestampFormat, fmt.Sprintf("%v", record[0]), time.Local)
		if err == nil && timestamp.Before(before) {
			list = append(list, row)
		}
	}

	rq := prune(sheet.Properties.SheetId, list)
	if len(rq.Requests) > 0 {
		if _, err := s.google.Spreadsheets.BatchUpdate(s.spreadsheet, rq).Context(ctx).Do(); err != nil {
			return err
		}
	}

	s.log.Info("pruned log records", zap.Int("deleted", len(list)))

	return nil
}

func cutoff(now time.Time, retention uint) time.Time {
	days := int(retention)
	if days > 0 {
		days--
	}

	before := now.In(time.Local).AddDate(0, 0, -days)

	return time.Date(before.Year(), before.Month(), before.Day(), 0, 0, 0, 0, before.Location())
}

// prune coalesces the rows into contiguous ranges and returns the delete requests,
// highest range first so that earlier deletes don't shift the later ones.
func prune(sheetID int64, list []int) *sheets.BatchUpdateSpreadsheetRequest {
	rq := sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{},
	}

	if len(list) == 0 {
		return &rq
	}

	sort.Ints(list)

	type span struct{ start, end int }

	ranges := []span{}
	start := list[0]
	last := list[0]
	for _, row := range list[1:] {
		if row != last+1 {
			ranges = append(ranges, span{start, last})
			start = row
		}

		last = row
	}

	ranges = append(ranges, span{start, last})

	for i := len(ranges) - 1; i >= 0; i-- {
		rq.Requests = append(rq.Requests, &sheets.Request{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(ranges[i].start),
					EndIndex:   int64(ranges[i].end + 1),
				},
			},
		})
	}

	return &rq
}

func sheetName(area string) (string, error) {
	match := regexp.MustCompile(`^\s*'?(.+?)'?!.*$`).FindStringSubmatch(area)
	if len(match) < 2 {
		return "", fmt.Errorf("invalid range '%s' - expected something like 'Log!A1:H'", area)
	}

	return match[1], nil
}

func normalise(v string) string {
	return strings.ToLower(strings.ReplaceAll(v, " ", ""))
}
