package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"letter-log-system/internal/config"
	"letter-log-system/internal/model"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// sheetHeader is the first row of the mirror sheet; column A holds the letter id.
var sheetHeader = []interface{}{"ID", "Nomor Surat", "Perihal", "Tanggal", "Jenis", "Status", "Updated At"}

// SheetSyncService mirrors letters into a Google Sheet, one row per letter.
type SheetSyncService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           zerolog.Logger
}

// NewSheetSyncService returns nil when the mirror is disabled.
func NewSheetSyncService(ctx context.Context, cfg config.SheetsConfig, log zerolog.Logger) (*SheetSyncService, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(b),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return newSheetSyncService(srv, cfg.SpreadsheetID, cfg.SheetName, log), nil
}

func newSheetSyncService(srv *sheets.Service, spreadsheetID, sheetName string, log zerolog.Logger) *SheetSyncService {
	return &SheetSyncService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log,
	}
}

func letterRow(l *model.Letter) []interface{} {
	return []interface{}{
		strconv.FormatUint(uint64(l.ID), 10),
		l.NomorSurat,
		l.Perihal,
		l.Tanggal.String(),
		string(l.Jenis),
		l.Status,
		l.UpdatedAt.Format(time.RFC3339),
	}
}

// findRow returns the 1-based sheet row holding id, or 0.
func (s *SheetSyncService) findRow(ctx context.Context, id uint) (int, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A2:A").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read sheet ids: %w", err)
	}

	key := strconv.FormatUint(uint64(id), 10)
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == key {
			return i + 2, nil
		}
	}
	return 0, nil
}

func (s *SheetSyncService) Upsert(ctx context.Context, letter *model.Letter) error {
	if s == nil {
		return nil
	}

	rowIndex, err := s.findRow(ctx, letter.ID)
	if err != nil {
		return err
	}

	values := &sheets.ValueRange{Values: [][]interface{}{letterRow(letter)}}
	if rowIndex > 0 {
		rangeData := fmt.Sprintf("%s!A%d:G%d", s.sheetName, rowIndex, rowIndex)
		_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, values).
			ValueInputOption("RAW").Context(ctx).Do()
	} else {
		_, err = s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+"!A2:G", values).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("write letter %d to sheet: %w", letter.ID, err)
	}

	s.log.Debug().Uint("letter_id", letter.ID).Int("row", rowIndex).Msg("letter mirrored to sheet")
	return nil
}

// Remove clears the row of a deleted letter. Rows are cleared rather than
// deleted so other row indexes stay stable.
func (s *SheetSyncService) Remove(ctx context.Context, id uint) error {
	if s == nil {
		return nil
	}

	rowIndex, err := s.findRow(ctx, id)
	if err != nil {
		return err
	}
	if rowIndex == 0 {
		return nil
	}

	rangeData := fmt.Sprintf("%s!A%d:G%d", s.sheetName, rowIndex, rowIndex)
	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, rangeData, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear letter %d from sheet: %w", id, err)
	}
	return nil
}

// SyncAll rewrites the whole sheet from letters, header included.
func (s *SheetSyncService) SyncAll(ctx context.Context, letters []model.Letter) error {
	if s == nil {
		return nil
	}

	values := [][]interface{}{sheetHeader}
	for i := range letters {
		values = append(values, letterRow(&letters[i]))
	}

	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.sheetName+"!A:G", &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	if _, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.sheetName+"!A1:G", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	s.log.Info().Int("letters", len(letters)).Msg("sheet mirror rebuilt")
	return nil
}
