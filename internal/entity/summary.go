package entity

import "time"

// ScanSummary is the per-country result of one scan session.
type ScanSummary struct {
	ScanID      string `json:"scan_id"`
	CountryCode string `json:"country_code"`
	Total       int    `json:"total"`
	Valid       int    `json:"valid"`
	Invalid     int    `json:"invalid"`
	Redirected  int    `json:"redirected"`
	Removed     int    `json:"removed"`
	Skipped     int    `json:"skipped"`
}

// ValidationResult is one audit row persisted for every probe issued by a
// scan session. Rows accumulate across sessions; the primary key is
// (url, scan_id).
type ValidationResult struct {
	ScanID        string
	CountryCode   string
	URL           string
	StatusCode    *int
	ErrorMessage  string
	RedirectedTo  string
	RedirectChain []RedirectHop
	IsValid       bool
	FailureStreak int
	ValidatedAt   time.Time
}
