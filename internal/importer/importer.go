// Package importer builds menu trees from JSON, CSV and Google Sheets.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"menuforge/internal/menutree"
)

// DefaultName is used when an import request carries no menu name.
const DefaultName = "Imported menu"

// maxFetchBytes caps remote CSV downloads.
const maxFetchBytes = 5 << 20

var (
	// ErrInvalidInput marks content that cannot be turned into a tree.
	ErrInvalidInput = errors.New("invalid import input")
	// ErrFetch marks a failed remote download.
	ErrFetch = errors.New("import fetch failed")
)

// Format names an import source.
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatSheet Format = "sheet"
)

// Request is one import job.
type Request struct {
	Format Format
	// Content is the raw JSON or CSV document.
	Content string
	// URL is a Google Sheets link or a direct CSV link (FormatSheet).
	URL string
}

// SheetRef points at one tab of a spreadsheet.
type SheetRef struct {
	SpreadsheetID string
	GID           string
}

// RowSource reads the cells of one spreadsheet tab.
type RowSource interface {
	Rows(ctx context.Context, ref SheetRef) ([][]string, error)
}

// Importer turns Requests into fresh trees. Every imported node gets a new id.
type Importer struct {
	httpClient *http.Client
	sheets     RowSource
	newID      menutree.IDFunc
}

// Option configures an Importer.
type Option func(*Importer)

// WithHTTPClient replaces the client used for CSV downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(im *Importer) { im.httpClient = c }
}

// WithSheets routes Google Sheets links through the Sheets API instead of
// the public CSV export.
func WithSheets(src RowSource) Option {
	return func(im *Importer) { im.sheets = src }
}

// WithIDFunc replaces the id generator.
func WithIDFunc(fn menutree.IDFunc) Option {
	return func(im *Importer) { im.newID = fn }
}

func New(opts ...Option) *Importer {
	im := &Importer{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		newID:      menutree.NewID,
	}
	for _, o := range opts {
		o(im)
	}
	return im
}

// Import dispatches on the request format.
func (im *Importer) Import(ctx context.Context, req Request) ([]menutree.Item, error) {
	switch Format(strings.ToLower(string(req.Format))) {
	case FormatJSON:
		return ParseJSON([]byte(req.Content), im.newID)
	case FormatCSV:
		return ParseCSV(strings.NewReader(req.Content), im.newID)
	case FormatSheet:
		return im.importSheet(ctx, req.URL)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidInput, req.Format)
	}
}

func (im *Importer) importSheet(ctx context.Context, raw string) ([]menutree.Item, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}

	ref, isSheet := ParseSheetURL(raw)
	if isSheet && im.sheets != nil {
		rows, err := im.sheets.Rows(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		return FromRows(rows, im.newID), nil
	}

	target := raw
	if isSheet {
		target = CSVExportURL(ref)
	}
	body, err := im.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	return ParseCSV(bytes.NewReader(body), im.newID)
}

func (im *Importer) fetch(ctx context.Context, target string) ([]byte, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: url must be http or https", ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	resp, err := im.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return body, nil
}

// ParseJSON decodes an array of items and reassigns every id.
func ParseJSON(data []byte, newID menutree.IDFunc) ([]menutree.Item, error) {
	var items []menutree.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of items: %v", ErrInvalidInput, err)
	}
	if items == nil {
		return []menutree.Item{}, nil
	}
	return menutree.ReassignIDs(items, newID), nil
}

var sheetPath = regexp.MustCompile(`/spreadsheets/d/([^/]+)`)

// ParseSheetURL recognizes docs.google.com spreadsheet links. A missing gid
// selects the first tab ("0").
func ParseSheetURL(raw string) (SheetRef, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !strings.Contains(u.Hostname(), "docs.google.com") {
		return SheetRef{}, false
	}
	m := sheetPath.FindStringSubmatch(u.Path)
	if m == nil {
		return SheetRef{}, false
	}
	gid := u.Query().Get("gid")
	if gid == "" {
		// Shared links often carry the tab in the fragment: #gid=123.
		if frag, err := url.ParseQuery(u.Fragment); err == nil {
			gid = frag.Get("gid")
		}
	}
	if gid == "" {
		gid = "0"
	}
	return SheetRef{SpreadsheetID: m[1], GID: gid}, true
}

// CSVExportURL is the public CSV download link for ref.
func CSVExportURL(ref SheetRef) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s",
		url.PathEscape(ref.SpreadsheetID), url.QueryEscape(ref.GID))
}
