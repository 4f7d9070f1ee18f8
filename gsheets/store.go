package gsheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sfdict/sf-data-dictionary/dictionary"
)

// Store keeps each object's data dictionary on a worksheet of the same name in a
// single spreadsheet.
type Store struct {
	google      *sheets.Service
	spreadsheet string
	log         *zap.Logger
}

var colours = map[dictionary.Color]*sheets.Color{
	dictionary.Removed: &sheets.Color{Red: 0.918, Green: 0.6, Blue: 0.6},
	dictionary.Added:   &sheets.Color{Red: 1.0, Green: 0.8, Blue: 0.898},
}

var white = &sheets.Color{Red: 1.0, Green: 1.0, Blue: 1.0}

func NewStore(ctx context.Context, spreadsheet string, log *zap.Logger, opts ...option.ClientOption) (*Store, error) {
	google, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create new Sheets client (%w)", err)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Store{
		google:      google,
		spreadsheet: spreadsheet,
		log:         log,
	}, nil
}

// ReadRows returns all the rows on the object's worksheet. exists is false if the
// spreadsheet does not have a worksheet for the object.
func (s *Store) ReadRows(ctx context.Context, object string) ([]dictionary.Row, bool, error) {
	sheet, err := s.getSheet(ctx, object)
	if err != nil {
		return nil, false, err
	} else if sheet == nil {
		return nil, false, nil
	}

	response, err := s.google.Spreadsheets.Values.Get(s.spreadsheet, quote(sheet.Properties.Title)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, true, fmt.Errorf("unable to retrieve data from sheet (%w)", err)
	}

	rows := make([]dictionary.Row, 0, len(response.Values))
	for _, values := range response.Values {
		row := make(dictionary.Row, len(values))
		for i, v := range values {
			if v != nil {
				row[i] = fmt.Sprintf("%v", v)
			}
		}

		rows = append(rows, row)
	}

	return rows, true, nil
}

// CreateTab adds a worksheet for the object with a frozen header row. It is a
// no-op if the worksheet already exists.
func (s *Store) CreateTab(ctx context.Context, object string) error {
	if sheet, err := s.getSheet(ctx, object); err != nil {
		return err
	} else if sheet != nil {
		return nil
	}

	rq := sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			&sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: object,
						GridProperties: &sheets.GridProperties{
							FrozenRowCount: 1,
						},
					},
				},
			},
		},
	}

	if _, err := s.google.Spreadsheets.BatchUpdate(s.spreadsheet, &rq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("error creating worksheet '%v' (%w)", object, err)
	}

	s.log.Info("created worksheet", zap.String("object", object))

	return nil
}

// WriteRows writes the managed columns (A to E) of the rows generated by the
// reconciliation and then applies the row formatting. Every other cell is left
// untouched, which keeps formulas and typed values in the extension columns and
// in carried forward rows intact. The managed columns of every data row are reset
// to a white background before the formatting is applied so that rows coloured by
// an earlier run do not stay coloured.
func (s *Store) WriteRows(ctx context.Context, object string, result dictionary.Result) error {
	sheet, err := s.getSheet(ctx, object)
	if err != nil {
		return err
	} else if sheet == nil {
		return fmt.Errorf("unable to identify worksheet for '%v'", object)
	}

	title := sheet.Properties.Title
	data := managed(title, result.Rows, result.Changed)

	if len(data) > 0 {
		rq := sheets.BatchUpdateValuesRequest{
			ValueInputOption: "RAW",
			Data:             data,
		}

		if _, err := s.google.Spreadsheets.Values.BatchUpdate(s.spreadsheet, &rq).Context(ctx).Do(); err != nil {
			return fmt.Errorf("error writing worksheet '%v' (%w)", title, err)
		}

		s.log.Debug("wrote worksheet", zap.String("object", object), zap.Int("rows", len(result.Changed)), zap.Int("ranges", len(data)))
	}

	rq := format(sheet.Properties.SheetId, len(result.Rows), result.Formats)
	if len(rq.Requests) == 0 {
		return nil
	}

	if _, err := s.google.Spreadsheets.BatchUpdate(s.spreadsheet, rq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("error formatting worksheet '%v' (%w)", title, err)
	}

	s.log.Debug("formatted worksheet", zap.String("object", object), zap.Int("rows", len(result.Formats)))

	return nil
}

// managed returns one value range per run of consecutive changed rows, limited
// to the managed columns.
func managed(title string, rows []dictionary.Row, changed []int) []*sheets.ValueRange {
	list := []*sheets.ValueRange{}

	var current *sheets.ValueRange
	start, last := 0, -2

	for _, index := range changed {
		if index < 0 || index >= len(rows) {
			continue
		}

		if current == nil || index != last+1 {
			current = &sheets.ValueRange{Values: [][]interface{}{}}
			start = index
			list = append(list, current)
		}

		record := make([]interface{}, dictionary.Managed)
		for i := range record {
			record[i] = ""
			if i < len(rows[index]) {
				record[i] = rows[index][i]
			}
		}

		current.Values = append(current.Values, record)
		current.Range = fmt.Sprintf("%v!A%d:%c%d", quote(title), start+1, 'A'+dictionary.Managed-1, index+1)
		last = index
	}

	return list
}

func format(sheetID int64, rows int, formats []dictionary.Format) *sheets.BatchUpdateSpreadsheetRequest {
	rq := sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{},
	}

	if rows > 1 {
		rq.Requests = append(rq.Requests, background(sheetID, 1, int64(rows), dictionary.Managed, white))
	}

	for _, f := range formats {
		colour, ok := colours[f.Color]
		if !ok || f.Row < 1 {
			continue
		}

		columns := f.Columns
		if columns < 1 {
			columns = dictionary.Managed
		}

		rq.Requests = append(rq.Requests, background(sheetID, int64(f.Row), int64(f.Row+1), columns, colour))
	}

	return &rq
}

func background(sheetID int64, start, end int64, columns int, colour *sheets.Color) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    start,
				EndRowIndex:      end,
				StartColumnIndex: 0,
				EndColumnIndex:   int64(columns),
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{
					BackgroundColor: colour,
				},
			},
			Fields: "userEnteredFormat.backgroundColor",
		},
	}
}

func (s *Store) getSheet(ctx context.Context, name string) (*sheets.Sheet, error) {
	spreadsheet, err := s.google.Spreadsheets.Get(s.spreadsheet).
		Fields("spreadsheetId", "sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spreadsheet (%w)", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && strings.EqualFold(strings.TrimSpace(sheet.Properties.Title), strings.TrimSpace(name)) {
			return sheet, nil
		}
	}

	return nil, nil
}

func quote(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
