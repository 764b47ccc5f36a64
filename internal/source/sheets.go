package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/tabula/internal/config"
	tabulaErrors "github.com/harunnryd/tabula/internal/errors"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetID extracts the document ID from a Google Sheets URL.
func SpreadsheetID(url string) (string, bool) {
	m := spreadsheetIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsSheetsURL reports whether locator points at Google Sheets.
func IsSheetsURL(locator string) bool {
	_, ok := SpreadsheetID(locator)
	return ok && strings.Contains(locator, "docs.google.com")
}

// ColumnLetter converts a 1-based column number to its A1 notation letters.
func ColumnLetter(n int) string {
	if n <= 0 {
		return "A"
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// SheetsLoader reads rows through the Google Sheets v4 API. The service is
// created on first use so definitions without Google sheets need no credentials.
type SheetsLoader struct {
	cfg     config.GoogleSourceConfig
	opts    []option.ClientOption
	timeout time.Duration

	mu  sync.Mutex
	svc *sheets.Service
}

// NewSheetsLoader builds a loader from config. Extra client options are
// appended after the configured credentials.
func NewSheetsLoader(cfg config.GoogleSourceConfig, extra ...option.ClientOption) (*SheetsLoader, error) {
	timeout, err := config.DurationOrDefault(cfg.RequestTimeout, config.DefaultGoogleRequestTimeout)
	if err != nil {
		return nil, tabulaErrors.Validation(fmt.Sprintf("sources.google.request_timeout: %v", err))
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, extra...)

	return &SheetsLoader{cfg: cfg, opts: opts, timeout: timeout}, nil
}

func (l *SheetsLoader) service(ctx context.Context) (*sheets.Service, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.svc != nil {
		return l.svc, nil
	}
	svc, err := sheets.NewService(ctx, l.opts...)
	if err != nil {
		return nil, tabulaErrors.Initialization(fmt.Sprintf("create sheets service: %v", err))
	}
	l.svc = svc
	return svc, nil
}

func (l *SheetsLoader) Load(ctx context.Context, id string, def config.SheetDefinition) ([][]string, error) {
	spreadsheetID, ok := SpreadsheetID(def.URL)
	if !ok {
		return nil, tabulaErrors.Validation(fmt.Sprintf("sheet %q: %q is not a Google Sheets URL", id, def.URL))
	}

	svc, err := l.service(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	doc, err := svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties(title,index)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, tabulaErrors.MapSourceError(fmt.Errorf("sheet %q: read spreadsheet metadata: %w", id, err))
	}

	title, err := tabTitle(doc, def.Sheet)
	if err != nil {
		return nil, tabulaErrors.Validation(fmt.Sprintf("sheet %q: %v", id, err))
	}

	readRange := fmt.Sprintf("'%s'!A2:%s", strings.ReplaceAll(title, "'", "''"), ColumnLetter(len(def.Columns)))
	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, readRange).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, tabulaErrors.MapSourceError(fmt.Errorf("sheet %q: read range %s: %w", id, readRange, err))
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, values := range resp.Values {
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// tabTitle finds the tab at position index, preferring the index property
// the API reports over slice order.
func tabTitle(doc *sheets.Spreadsheet, index int) (string, error) {
	if doc == nil || len(doc.Sheets) == 0 {
		return "", fmt.Errorf("spreadsheet has no tabs")
	}
	for _, s := range doc.Sheets {
		if s.Properties != nil && int(s.Properties.Index) == index {
			return s.Properties.Title, nil
		}
	}
	if index >= 0 && index < len(doc.Sheets) && doc.Sheets[index].Properties != nil {
		return doc.Sheets[index].Properties.Title, nil
	}
	return "", fmt.Errorf("spreadsheet has no tab at index %d", index)
}
