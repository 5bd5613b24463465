package entity

import "time"

// UrlStatus is the classification of a URL's most recent validation outcome.
type UrlStatus string

const (
	UrlStatusValid      UrlStatus = "valid"
	UrlStatusInvalid    UrlStatus = "invalid"
	UrlStatusRedirected UrlStatus = "redirected"
)

// UrlRecord is the durable per-URL state in a country's source list.
// It outlives individual validation cycles; only a Scan Session mutates it.
type UrlRecord struct {
	CountryCode string `json:"country_code"`
	// URL is the current canonical form. Redirect resolution rewrites it
	// so future sessions probe the live endpoint, not a stale alias.
	URL string `json:"url"`
	// OriginalURL keeps the pre-canonicalization form after the first rewrite.
	OriginalURL   string     `json:"original_url,omitempty"`
	Status        UrlStatus  `json:"status,omitempty"`
	HTTPStatus    *int       `json:"http_status,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	FailureStreak int        `json:"failure_streak"`
	Removed       bool       `json:"removed"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

// RedirectHop is one recorded step in a followed redirect chain.
type RedirectHop struct {
	Position   int    `json:"position"`
	FromURL    string `json:"from_url"`
	ToURL      string `json:"to_url"`
	StatusCode int    `json:"status_code"`
}

// Outcome is the result of a single validation probe. The validator never
// persists anything; it only reports outcomes.
type Outcome struct {
	URL          string
	Status       UrlStatus
	FinalURL     string
	HTTPStatus   *int
	ErrorMessage string
	Hops         []RedirectHop
	ValidatedAt  time.Time
}

// IsValid reports whether the probe reached a 2xx terminal status,
// directly or through redirects.
func (o Outcome) IsValid() bool {
	return o.Status == UrlStatusValid || o.Status == UrlStatusRedirected
}

// ActiveRecords filters out removed records, producing the "active" view
// of a country's source list. Removed records stay in the durable store
// for audit.
func ActiveRecords(records []UrlRecord) []UrlRecord {
	active := make([]UrlRecord, 0, len(records))
	for _, r := range records {
		if !r.Removed {
			active = append(active, r)
		}
	}
	return active
}
