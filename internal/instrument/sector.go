package instrument

import "strings"

// SectorOther is assigned when no rule matches.
const SectorOther = "Other Stocks"

// knownSectors covers large caps whose tickers carry no sector keyword.
var knownSectors = map[string]string{
	"RELIANCE":   "Oil & Gas",
	"TCS":        "Technology",
	"INFY":       "Technology",
	"HCLTECH":    "Technology",
	"WIPRO":      "Technology",
	"TECHM":      "Technology",
	"HDFCBANK":   "Banking",
	"HDFC":       "Banking",
	"ICICIBANK":  "Banking",
	"SBIN":       "Banking",
	"BHARTIARTL": "Telecom",
	"ITC":        "FMCG",
	"HINDUNILVR": "FMCG",
	"LT":         "Engineering",
	"ASIANPAINT": "Paints",
	"MARUTI":     "Automobile",
	"BAJFINANCE": "Finance",
}

// sectorKeywords is checked in order; the first rule with a keyword
// contained in the ticker wins.
var sectorKeywords = []struct {
	sector   string
	keywords []string
}{
	{"Banking", []string{"BANK", "HDFC", "ICICI", "SBI", "AXIS", "KOTAK"}},
	{"Technology", []string{"TECH", "INFY", "TCS", "WIPRO", "HCL"}},
	{"Pharmaceuticals", []string{"PHARMA", "CIPLA", "DRREDDY", "SUNPHARMA"}},
	{"Automobile", []string{"AUTO", "MARUTI", "TATAMOTORS", "BAJAJ"}},
	{"Metals & Mining", []string{"STEEL", "TATASTEEL", "JSWSTEEL"}},
	{"Oil & Gas", []string{"OIL", "ONGC", "COAL"}},
	{"Consumer Goods", []string{"CONSUMER", "HINDUNILVR", "ITC", "NESTLE"}},
	{"Real Estate", []string{"REALTY", "DLF", "GODREJ"}},
	{"Power & Energy", []string{"POWER", "POWERGRID", "NTPC"}},
}

// GuessSector infers an equity sector from the ticker alone. It is the last
// resort when no provider reports one.
func GuessSector(ticker string) string {
	base := Normalize(ticker)
	if s, ok := knownSectors[base]; ok {
		return s
	}
	for _, rule := range sectorKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(base, kw) {
				return rule.sector
			}
		}
	}
	return SectorOther
}
