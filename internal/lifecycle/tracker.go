// Package lifecycle implements the per-URL failure-streak state machine:
// first failure is noted and the record kept, the second consecutive
// failure removes it. Redirects count as successes that permanently
// rewrite the record's canonical URL.
package lifecycle

import (
	"time"

	"github.com/user/validator-service/internal/entity"
)

// MaxFailureStreak is the streak at which a record is removed. The streak
// is finalized at this value; further failures do not grow it.
const MaxFailureStreak = 2

// Apply folds a probe outcome into a record. A valid outcome
// unconditionally resets the streak and clears the removed flag; an
// invalid outcome grows the streak and removes the record once the streak
// reaches MaxFailureStreak. The streak never resets by the passage of
// time, only by an explicit valid outcome.
func Apply(rec *entity.UrlRecord, out entity.Outcome, now time.Time) {
	checked := now.UTC()
	rec.LastCheckedAt = &checked
	rec.Status = out.Status
	rec.HTTPStatus = out.HTTPStatus
	rec.ErrorMessage = out.ErrorMessage

	if out.IsValid() {
		rec.FailureStreak = 0
		rec.Removed = false
		if out.Status == entity.UrlStatusRedirected && out.FinalURL != "" && out.FinalURL != rec.URL {
			if rec.OriginalURL == "" {
				rec.OriginalURL = rec.URL
			}
			rec.URL = out.FinalURL
		}
		return
	}

	rec.FailureStreak++
	if rec.FailureStreak >= MaxFailureStreak {
		rec.FailureStreak = MaxFailureStreak
		rec.Removed = true
	}
}
