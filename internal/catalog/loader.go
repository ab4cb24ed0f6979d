package catalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/wattlab/price-updater/internal/config"
	"github.com/wattlab/price-updater/internal/models"
)

// ErrNoUsableRows means the catalog produced zero entries with an
// identifier source. This is the only loader condition that fails a run.
var ErrNoUsableRows = errors.New("catalog contains no usable rows")

type Loader struct {
	cfg    config.CatalogConfig
	logger *slog.Logger
}

func NewLoader(cfg config.CatalogConfig, logger *slog.Logger) *Loader {
	return &Loader{cfg: cfg, logger: logger}
}

// Load reads the catalog file and returns one entry per usable row. Rows
// without an ASIN or URL are skipped with a logged reason; only zero usable
// rows is an error.
func (l *Loader) Load() ([]models.CatalogEntry, error) {
	format := l.cfg.Format
	if format == "" || format == "auto" {
		format = detectFormat(l.cfg.Path)
	}

	var (
		entries []models.CatalogEntry
		err     error
	)
	switch format {
	case "csv":
		entries, err = l.loadCSV()
	case "xlsx":
		entries, err = l.loadXLSX()
	case "json":
		entries, err = l.loadJSON()
	case "txt":
		entries, err = l.loadLines()
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, ErrNoUsableRows
	}

	l.logger.Info("catalog loaded", "path", l.cfg.Path, "format", format, "entries", len(entries))
	return entries, nil
}

func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	case ".xlsx", ".xls":
		return "xlsx"
	case ".json":
		return "json"
	default:
		return "txt"
	}
}

func (l *Loader) loadCSV() ([]models.CatalogEntry, error) {
	raw, err := os.ReadFile(l.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(l.decode(raw)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoUsableRows
	}

	headers := trimAll(records[0])
	var entries []models.CatalogEntry
	for i, record := range records[1:] {
		entry, ok := l.rowToEntry(headers, trimAll(record), i+2)
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (l *Loader) loadXLSX() ([]models.CatalogEntry, error) {
	f, err := excelize.OpenFile(l.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoUsableRows
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrNoUsableRows
	}

	headers := trimAll(rows[0])
	var entries []models.CatalogEntry
	for i, row := range rows[1:] {
		entry, ok := l.rowToEntry(headers, trimAll(row), i+2)
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (l *Loader) loadJSON() ([]models.CatalogEntry, error) {
	raw, err := os.ReadFile(l.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(l.decode(raw)), &rows); err != nil {
		return nil, fmt.Errorf("parse json catalog: %w", err)
	}

	var entries []models.CatalogEntry
	for i, row := range rows {
		attrs := make(map[string]string, len(row))
		for k, v := range row {
			attrs[strings.TrimSpace(k)] = strings.TrimSpace(stringify(v))
		}
		entry, ok := l.attrsToEntry(attrs, i+1)
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// loadLines treats each non-empty, non-comment line as either a bare ASIN
// or a product URL.
func (l *Loader) loadLines() ([]models.CatalogEntry, error) {
	raw, err := os.ReadFile(l.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var entries []models.CatalogEntry
	for i, line := range strings.Split(l.decode(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry := models.CatalogEntry{Attributes: map[string]string{}}
		if IsValidASIN(line) {
			entry.ASIN = line
		} else if strings.Contains(line, "/") {
			entry.SourceURL = line
		} else {
			l.logger.Warn("skipping line: neither ASIN nor URL", "line", i+1, "value", line)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *Loader) rowToEntry(headers, values []string, row int) (models.CatalogEntry, bool) {
	attrs := make(map[string]string, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		// Missing trailing columns become empty attributes, not errors.
		if i < len(values) {
			attrs[h] = values[i]
		} else {
			attrs[h] = ""
		}
	}
	return l.attrsToEntry(attrs, row)
}

func (l *Loader) attrsToEntry(attrs map[string]string, row int) (models.CatalogEntry, bool) {
	entry := models.CatalogEntry{
		ASIN:       attrs["asin"],
		Attributes: attrs,
	}
	if url := attrs["affiliate_link"]; url != "" {
		entry.SourceURL = url
	} else if url := attrs["url"]; url != "" {
		entry.SourceURL = url
	}

	if entry.ASIN == "" && entry.SourceURL == "" {
		l.logger.Warn("skipping row: no identifier source", "row", row)
		return models.CatalogEntry{}, false
	}
	return entry, true
}

// decode normalizes raw catalog bytes to UTF-8: declared encoding first,
// then UTF-8, then Windows-1252. The final fallback cannot fail, so the
// ladder never raises.
func (l *Loader) decode(raw []byte) string {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	if l.cfg.Encoding != "" {
		if enc := lookupEncoding(l.cfg.Encoding); enc != nil {
			if out, err := enc.NewDecoder().Bytes(raw); err == nil {
				return string(out)
			}
		} else {
			l.logger.Warn("unknown declared encoding, falling back", "encoding", l.cfg.Encoding)
		}
	}

	if utf8.Valid(raw) {
		return string(raw)
	}

	out, _ := charmap.Windows1252.NewDecoder().Bytes(raw)
	return string(out)
}

func lookupEncoding(name string) encoding.Encoding {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return encoding.Nop
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	case "iso-8859-1", "latin-1", "latin1":
		return charmap.ISO8859_1
	default:
		return nil
	}
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
