package models

// ImportResult summarises one ingested CSV file.
type ImportResult struct {
	File       *InvestmentFile `json:"file,omitempty"`
	Rows       int             `json:"rows"`
	Recorded   int             `json:"recorded"`
	Resolved   int             `json:"resolved"`
	Unresolved int             `json:"unresolved"`
	Skipped    int             `json:"skipped"`
	Warnings   []string        `json:"warnings,omitempty"`
	Duplicate  bool            `json:"duplicate,omitempty"`
}
