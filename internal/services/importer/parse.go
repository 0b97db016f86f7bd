package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

// Canonical column names.
const (
	colStockName = "stock_name"
	colTicker    = "ticker"
	colQuantity  = "quantity"
	colPrice     = "price"
	colType      = "transaction_type"
	colDate      = "date"
	colChannel   = "channel"
	colSector    = "sector"
	colAmount    = "amount"
)

// RequiredColumns must be present in every file; price is optional and
// resolved when missing.
var RequiredColumns = []string{colStockName, colTicker, colQuantity, colType, colDate}

// columnAliases maps normalised header text to canonical names.
var columnAliases = map[string]string{
	"stock_name":       colStockName,
	"stock":            colStockName,
	"name":             colStockName,
	"scheme_name":      colStockName,
	"ticker":           colTicker,
	"symbol":           colTicker,
	"scheme_code":      colTicker,
	"quantity":         colQuantity,
	"qty":              colQuantity,
	"units":            colQuantity,
	"price":            colPrice,
	"nav":              colPrice,
	"transaction_type": colType,
	"type":             colType,
	"side":             colType,
	"date":             colDate,
	"trade_date":       colDate,
	"transaction_date": colDate,
	"channel":          colChannel,
	"broker":           colChannel,
	"sector":           colSector,
	"amount":           colAmount,
	"value":            colAmount,
}

// dateLayouts are tried in order.
var dateLayouts = []string{
	models.DateLayout,
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"02-Jan-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ErrMissingColumns is returned when a file lacks required columns.
var ErrMissingColumns = errors.New("missing required columns")

// row is one parsed CSV line before pricing.
type row struct {
	line      int
	stockName string
	ticker    string
	quantity  decimal.Decimal
	price     *decimal.Decimal
	txType    models.TransactionType
	date      time.Time
	channel   string
	sector    string
	amount    *decimal.Decimal
}

// parsed is the outcome of reading one file.
type parsed struct {
	rows     []row
	total    int
	warnings []string
}

func normaliseHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	if canon, ok := columnAliases[h]; ok {
		return canon
	}
	return h
}

// ChannelFromFilename derives the channel from names like
// "zerodha_kite_20240115.csv": everything before the last underscore.
func ChannelFromFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(base, "_")
	if len(parts) >= 2 {
		return strings.Join(parts[:len(parts)-1], "_")
	}
	return "default"
}

// parseDate accepts the common broker date formats.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.TruncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// parseNumber accepts grouped numbers such as "1,234.50" and a leading ₹.
func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(strings.TrimSpace(s))
}

// parseCSV reads r into rows. Malformed rows are skipped with a warning;
// structural problems (unreadable CSV, missing columns) are errors.
func parseCSV(r io.Reader, filename string) (*parsed, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", ErrMissingColumns)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := normaliseHeader(h)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	defaultChannel := ChannelFromFilename(filename)
	out := &parsed{}
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}
		out.total++

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		rw, err := parseRow(get, line, defaultChannel)
		if err != nil {
			out.warnings = append(out.warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		out.rows = append(out.rows, rw)
	}

	return out, nil
}

func parseRow(get func(string) string, line int, defaultChannel string) (row, error) {
	rw := row{line: line, stockName: get(colStockName), sector: get(colSector)}

	rw.ticker = strings.ToUpper(get(colTicker))
	if rw.ticker == "" {
		return rw, fmt.Errorf("missing ticker")
	}
	if _, err := models.LiveRequest(rw.ticker); err != nil {
		return rw, err
	}

	qty, err := parseNumber(get(colQuantity))
	if err != nil || !qty.IsPositive() {
		return rw, fmt.Errorf("invalid quantity %q", get(colQuantity))
	}
	rw.quantity = qty

	txType, ok := models.ParseTransactionType(get(colType))
	if !ok {
		return rw, fmt.Errorf("invalid transaction type %q", get(colType))
	}
	rw.txType = txType

	date, err := parseDate(get(colDate))
	if err != nil {
		return rw, err
	}
	rw.date = date

	if raw := get(colPrice); raw != "" {
		price, err := parseNumber(raw)
		if err != nil || !price.IsPositive() {
			return rw, fmt.Errorf("invalid price %q", raw)
		}
		rw.price = &price
	}
	if raw := get(colAmount); raw != "" {
		if amount, err := parseNumber(raw); err == nil && !amount.IsZero() {
			amount = amount.Abs()
			rw.amount = &amount
		}
	}

	rw.channel = get(colChannel)
	if rw.channel == "" {
		rw.channel = defaultChannel
	}
	return rw, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
