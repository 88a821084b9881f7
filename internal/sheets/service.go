// Package sheets appends batch analysis results to a Google Sheet.
package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"findoc/internal/logger"
	"findoc/pkg/models"
)

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// Service handles Google Sheets operations
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// NewService creates a Sheets client from the service account configured in
// GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.
func NewService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "sheets.NewService"

	var (
		creds []byte
		err   error
	)
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	return newService(ctx, sheetURL, option.WithHTTPClient(config.Client(ctx)))
}

func newService(ctx context.Context, sheetURL string, opts ...option.ClientOption) (*Service, error) {
	const op = "sheets.NewService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}
	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
	}, nil
}

func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// AppendRows appends export rows to the worksheet, creating it with the
// export header when needed.
func (s *Service) AppendRows(ctx context.Context, worksheet string, rows [][]string) error {
	const op = "sheets.AppendRows"

	s.log.Info().
		Str("sheet", worksheet).
		Int("rows", len(rows)).
		Msg("Writing analysis results to Google Sheet")

	header := models.ExportHeader()
	if err := s.ensureSheetWithHeaders(ctx, worksheet, header); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}
	if len(rows) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, toValues(row))
	}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!A:%s", worksheet, columnLetter(len(header))),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Msg("Successfully wrote analysis results to Google Sheet")
	return nil
}

func toValues(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, cell := range row {
		out[i] = cell
	}
	return out
}

// columnLetter converts a 1-based column number to A1 notation.
func columnLetter(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func (s *Service) ensureSheetWithHeaders(ctx context.Context, worksheet string, header []string) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == worksheet {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", worksheet).Msg("Creating new sheet")

		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: worksheet}}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
			sheetID = resp.Replies[0].AddSheet.Properties.SheetId
		}
	}

	headerRange := fmt.Sprintf("%s!A1:%s1", worksheet, columnLetter(len(header)))
	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	s.log.Info().Str("sheet", worksheet).Msg("Adding headers to sheet")

	_, err = s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		headerRange,
		&sheets.ValueRange{Values: [][]interface{}{toValues(header)}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to add headers: %w", op, err)
	}

	if err := s.formatHeaders(ctx, sheetID, int64(len(header))); err != nil {
		s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}
	return nil
}

// formatHeaders makes the header row bold and resizes the columns.
func (s *Service) formatHeaders(ctx context.Context, sheetID, columns int64) error {
	const op = "formatHeaders"

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}
	return nil
}
