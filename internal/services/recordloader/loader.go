package recordloader

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pocketmoney/internal/models"
	"pocketmoney/internal/services/storage"
)

// Loader reads monetary records from CSV files in the data directory. It is
// the persistence collaborator for the analytics engine: malformed rows are
// skipped and counted, never fatal.
type Loader struct {
	CSVDirectory string
	SkippedCount int
	store        *storage.Storage
	log          zerolog.Logger
}

// columnMappings maps common export column names to our standard names
var columnMappings = map[string][]string{
	"Date": {
		"date", "Date", "DATE",
		"occurred at", "Occurred At", "occurred_at",
		"transaction date", "Transaction Date",
		"order date", "Order Date",
	},
	"Amount": {
		"amount", "Amount", "AMOUNT",
		"value", "Value", "VALUE",
		"total", "Total", "TOTAL",
	},
	"Kind": {
		"kind", "Kind", "KIND",
		"type", "Type", "TYPE",
		"record type", "Record Type",
	},
	"Category": {
		"category", "Category", "CATEGORY",
		"expense category", "Expense Category",
	},
	"Customer": {
		"customer", "Customer", "CUSTOMER",
		"customer name", "Customer Name",
		"client", "Client", "CLIENT",
	},
	"ID": {
		"id", "Id", "ID",
		"record id", "Record ID", "record_id",
	},
}

// New creates a new Loader
func New(csvDirectory string, store *storage.Storage, log zerolog.Logger) *Loader {
	return &Loader{
		CSVDirectory: csvDirectory,
		store:        store,
		log:          log,
	}
}

// normalizeColumnName maps an export column name to our standard name
func normalizeColumnName(col string) string {
	col = strings.TrimSpace(col)
	for standard, variants := range columnMappings {
		for _, variant := range variants {
			if col == variant {
				return standard
			}
		}
	}
	return col
}

// buildColumnIndex creates a normalized column index from CSV headers
func buildColumnIndex(header []string) map[string]int {
	colIndex := make(map[string]int)
	for i, col := range header {
		normalized := normalizeColumnName(col)
		// First match wins
		if _, exists := colIndex[normalized]; !exists {
			colIndex[normalized] = i
		}
	}
	return colIndex
}

// Load loads and combines records from all CSV files in the directory
func (l *Loader) Load() (*models.RecordSet, error) {
	pattern := filepath.Join(l.CSVDirectory, "*.csv")
	files, err := l.store.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("finding record files: %w", err)
	}

	l.SkippedCount = 0

	if len(files) == 0 {
		l.log.Debug().Str("dir", l.CSVDirectory).Msg("no record files found, returning empty set")
		return models.NewRecordSet(nil), nil
	}

	var all []models.MonetaryRecord
	for _, file := range files {
		records, skipped, err := l.loadCSVFile(file)
		if err != nil {
			l.log.Warn().Err(err).Str("file", filepath.Base(file)).Msg("failed to load record file")
			continue
		}
		l.SkippedCount += skipped
		all = append(all, records...)
	}

	all = l.deduplicate(all)

	l.log.Debug().
		Int("records", len(all)).
		Int("skipped", l.SkippedCount).
		Msg("loaded record files")

	return models.NewRecordSet(all), nil
}

// FetchRevenue returns revenue records within the interval. Independent
// callers may fetch revenue and expenses concurrently; each call re-reads the
// store and returns a fresh set.
func (l *Loader) FetchRevenue(iv models.Interval) (*models.RecordSet, error) {
	all, err := l.Load()
	if err != nil {
		return nil, err
	}
	return all.FilterByKind(models.Revenue).FilterByInterval(iv), nil
}

// FetchExpenses returns expense records within the interval
func (l *Loader) FetchExpenses(iv models.Interval) (*models.RecordSet, error) {
	all, err := l.Load()
	if err != nil {
		return nil, err
	}
	return all.FilterByKind(models.Expense).FilterByInterval(iv), nil
}

// loadCSVFile loads records from a single CSV file, returning how many rows
// were skipped as malformed
func (l *Loader) loadCSVFile(filePath string) ([]models.MonetaryRecord, int, error) {
	file, err := l.store.OpenFile(filePath)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}

	colIndex := buildColumnIndex(header)

	if _, ok := colIndex["Date"]; !ok {
		return nil, 0, fmt.Errorf("missing required column: Date (tried: %v)", columnMappings["Date"])
	}
	if _, ok := colIndex["Amount"]; !ok {
		return nil, 0, fmt.Errorf("missing required column: Amount (tried: %v)", columnMappings["Amount"])
	}

	field := func(record []string, name string) string {
		if idx, ok := colIndex[name]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	var records []models.MonetaryRecord
	sourceFile := filepath.Base(filePath)
	skipped := 0
	lineNum := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			l.log.Warn().Err(err).Int("line", lineNum).Msg("unreadable row skipped")
			skipped++
			continue
		}

		occurredAt := parseDate(field(row, "Date"))
		if occurredAt.IsZero() {
			l.log.Warn().Int("line", lineNum).Str("value", field(row, "Date")).Msg("unparseable date, row skipped")
			skipped++
			continue
		}

		amount, negative, err := parseAmount(field(row, "Amount"))
		if err != nil {
			l.log.Warn().Int("line", lineNum).Str("value", field(row, "Amount")).Msg("unparseable amount, row skipped")
			skipped++
			continue
		}

		kind := parseKind(field(row, "Kind"), negative)

		r := models.MonetaryRecord{
			ID:         field(row, "ID"),
			Amount:     amount,
			OccurredAt: occurredAt,
			Kind:       kind,
			SourceFile: sourceFile,
		}
		if kind == models.Expense {
			r.Category = field(row, "Category")
		} else {
			r.Customer = field(row, "Customer")
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.Hash = r.ComputeHash()

		records = append(records, r)
	}

	return records, skipped, nil
}

// parseDate tries multiple date formats
func parseDate(s string) time.Time {
	formats := []string{
		"2006-01-02",
		time.RFC3339,
		"02/01/2006",
		"2/1/2006",
		"2006/01/02",
		"2 Jan 2006",
		"Jan 2, 2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}

	return time.Time{}
}

// parseAmount parses a currency string into a non-negative decimal, reporting
// whether the source value was negative. Currency symbols, thousands
// separators and accounting parentheses are tolerated.
func parseAmount(s string) (decimal.Decimal, bool, error) {
	s = strings.ReplaceAll(s, "RM", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	// Accounting style: (100.00) means -100.00
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d.Abs(), d.IsNegative(), nil
}

// parseKind resolves the record kind from an explicit column value, falling
// back to the amount's sign (negative means money out)
func parseKind(s string, negative bool) models.RecordKind {
	switch strings.ToLower(s) {
	case "revenue", "income", "sale", "order":
		return models.Revenue
	case "expense", "cost", "outflow":
		return models.Expense
	}
	if negative {
		return models.Expense
	}
	return models.Revenue
}

// deduplicate removes duplicate records based on content hash
func (l *Loader) deduplicate(records []models.MonetaryRecord) []models.MonetaryRecord {
	seen := make(map[string]bool)
	var unique []models.MonetaryRecord

	for _, r := range records {
		if !seen[r.Hash] {
			seen[r.Hash] = true
			unique = append(unique, r)
		}
	}

	if removed := len(records) - len(unique); removed > 0 {
		l.log.Debug().Int("removed", removed).Msg("removed duplicate records")
	}

	return unique
}

// FileInfos returns information about available record CSV files
func (l *Loader) FileInfos() ([]models.FileInfo, error) {
	pattern := filepath.Join(l.CSVDirectory, "*.csv")
	files, err := l.store.Glob(pattern)
	if err != nil {
		return nil, err
	}

	var infos []models.FileInfo
	for _, file := range files {
		stat, err := l.store.Stat(file)
		if err != nil {
			continue
		}

		records, _, err := l.loadCSVFile(file)
		if err != nil {
			continue
		}
		set := models.NewRecordSet(records)

		info := models.FileInfo{
			Name:    filepath.Base(file),
			Path:    file,
			Size:    stat.Size(),
			Records: len(records),
		}
		if min := set.MinDate(); !min.IsZero() {
			info.MinDate = min.Format("2006-01-02")
		}
		if max := set.MaxDate(); !max.IsZero() {
			info.MaxDate = max.Format("2006-01-02")
		}
		infos = append(infos, info)
	}

	return infos, nil
}
