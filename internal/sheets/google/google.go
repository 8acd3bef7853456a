// Package google publishes laid out workbooks to a Google spreadsheet and
// reads reference lists from it.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"keswan/internal/export"
	"keswan/internal/log"
	ports "keswan/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultReferenceSheet = "Referensi"
	referenceRange        = "A1:C500"
)

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	referenceSheet string
	logger         *log.Logger
}

// Ensure interface conformance
var (
	_ ports.WorkbookPublisher = (*Client)(nil)
	_ ports.ReferenceReader   = (*Client)(nil)
)

// Options configures the client. CredentialsJSON takes precedence over
// CredentialsFile; Endpoint, when set, disables authentication and is
// meant for tests against a local server.
type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	ReferenceSheet  string
	Endpoint        string
}

func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	refSheet := strings.TrimSpace(opts.ReferenceSheet)
	if refSheet == "" {
		refSheet = defaultReferenceSheet
	}

	return &Client{
		svc:            svc,
		spreadsheetID:  spreadsheetID,
		referenceSheet: refSheet,
		logger:         logger,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options, logger *log.Logger) (*gsheet.Service, error) {
	if opts.Endpoint != "" {
		return gsheet.NewService(ctx,
			goption.WithEndpoint(opts.Endpoint),
			goption.WithoutAuthentication())
	}

	serviceAccountJSON := strings.TrimSpace(opts.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(opts.CredentialsFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Publish writes every sheet of wb to its own tab named after title and the
// sheet. Missing tabs are created and existing ones are cleared first, so
// publishing the same report twice leaves a single up to date copy.
func (c *Client) Publish(ctx context.Context, title string, wb *export.Workbook) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	existing, err := c.tabTitles(ctx)
	if err != nil {
		return "", err
	}

	sheets := wb.Sheets
	if len(sheets) == 0 {
		// an empty report still gets a tab so readers see it ran
		sheets = []*export.Sheet{{Name: "Kosong"}}
	}

	var add []*gsheet.Request
	tabs := make([]string, len(sheets))
	for i, s := range sheets {
		tabs[i] = tabName(title, s.Name)
		if !existing[tabs[i]] {
			add = append(add, &gsheet.Request{
				AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tabs[i]}},
			})
		}
	}
	if len(add) > 0 {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID,
			&gsheet.BatchUpdateSpreadsheetRequest{Requests: add}).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("add tabs: %w", err)
		}
	}

	for i, s := range sheets {
		rng := quoteTab(tabs[i])
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("clear %s: %w", rng, err)
		}
		vr := &gsheet.ValueRange{Values: sheetValues(s)}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("write %s: %w", rng, err)
		}
	}

	ref := fmt.Sprintf("%s!%s", c.spreadsheetID, quoteTab(tabs[0]))
	c.logger.InfoContext(ctx, "Workbook published",
		log.FieldOperation, log.OpPublish,
		log.FieldSheetsRef, ref,
		"tabs", len(tabs))
	return ref, nil
}

// References implements ports.ReferenceReader. The reference tab carries
// one column per list, identified by its header.
func (c *Client) References(ctx context.Context, list ports.ReferenceList) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", quoteTab(c.referenceSheet), referenceRange)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseReferenceColumn(resp.Values, list)
}

func (c *Client) tabTitles(ctx context.Context) (map[string]bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	titles := make(map[string]bool, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles[s.Properties.Title] = true
		}
	}
	return titles, nil
}
