package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/sheets/v4"
)

// SheetsAPI reads private spreadsheets through the Google Sheets API.
type SheetsAPI struct {
	srv *sheets.Service
}

func NewSheetsAPI(srv *sheets.Service) *SheetsAPI {
	return &SheetsAPI{srv: srv}
}

// Rows returns the formatted values of the tab whose sheetId equals ref.GID.
// An unknown gid falls back to the first tab.
func (s *SheetsAPI) Rows(ctx context.Context, ref SheetRef) ([][]string, error) {
	meta, err := s.srv.Spreadsheets.Get(ref.SpreadsheetID).
		Fields("sheets(properties(sheetId,title))").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets metadata: %w", err)
	}
	if len(meta.Sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no tabs", ref.SpreadsheetID)
	}

	title := meta.Sheets[0].Properties.Title
	if gid, err := strconv.ParseInt(ref.GID, 10, 64); err == nil {
		for _, sh := range meta.Sheets {
			if sh.Properties != nil && sh.Properties.SheetId == gid {
				title = sh.Properties.Title
				break
			}
		}
	}

	vr, err := s.srv.Spreadsheets.Values.Get(ref.SpreadsheetID, quoteSheetTitle(title)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets values: %w", err)
	}

	rows := make([][]string, 0, len(vr.Values))
	for _, raw := range vr.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// quoteSheetTitle turns a tab title into an A1 range covering the whole tab.
func quoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
