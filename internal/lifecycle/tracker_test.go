package lifecycle

import (
	"testing"
	"time"

	"github.com/user/validator-service/internal/entity"
)

func intPtr(v int) *int { return &v }

func validOutcome(url string) entity.Outcome {
	return entity.Outcome{
		URL:        url,
		Status:     entity.UrlStatusValid,
		FinalURL:   url,
		HTTPStatus: intPtr(200),
	}
}

func invalidOutcome(url, msg string) entity.Outcome {
	return entity.Outcome{
		URL:          url,
		Status:       entity.UrlStatusInvalid,
		FinalURL:     url,
		ErrorMessage: msg,
	}
}

func redirectedOutcome(from, to string) entity.Outcome {
	return entity.Outcome{
		URL:        from,
		Status:     entity.UrlStatusRedirected,
		FinalURL:   to,
		HTTPStatus: intPtr(200),
		Hops:       []entity.RedirectHop{{Position: 1, FromURL: from, ToURL: to, StatusCode: 301}},
	}
}

func TestApplyTransitions(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name        string
		prior       entity.UrlRecord
		outcome     entity.Outcome
		wantStreak  int
		wantRemoved bool
		wantURL     string
	}{
		{
			name:       "valid keeps clean record clean",
			prior:      entity.UrlRecord{URL: "https://a.example"},
			outcome:    validOutcome("https://a.example"),
			wantStreak: 0, wantRemoved: false, wantURL: "https://a.example",
		},
		{
			name:       "valid resets first failure",
			prior:      entity.UrlRecord{URL: "https://a.example", FailureStreak: 1},
			outcome:    validOutcome("https://a.example"),
			wantStreak: 0, wantRemoved: false, wantURL: "https://a.example",
		},
		{
			name:       "valid clears removed record",
			prior:      entity.UrlRecord{URL: "https://a.example", FailureStreak: 2, Removed: true},
			outcome:    validOutcome("https://a.example"),
			wantStreak: 0, wantRemoved: false, wantURL: "https://a.example",
		},
		{
			name:       "first failure noted, record kept",
			prior:      entity.UrlRecord{URL: "https://a.example"},
			outcome:    invalidOutcome("https://a.example", "dns resolution failed"),
			wantStreak: 1, wantRemoved: false, wantURL: "https://a.example",
		},
		{
			name:       "second consecutive failure removes",
			prior:      entity.UrlRecord{URL: "https://a.example", FailureStreak: 1},
			outcome:    invalidOutcome("https://a.example", "dns resolution failed"),
			wantStreak: 2, wantRemoved: true, wantURL: "https://a.example",
		},
		{
			name:       "streak finalized at 2",
			prior:      entity.UrlRecord{URL: "https://a.example", FailureStreak: 2, Removed: true},
			outcome:    invalidOutcome("https://a.example", "timeout"),
			wantStreak: 2, wantRemoved: true, wantURL: "https://a.example",
		},
		{
			name:       "redirect rewrites canonical URL",
			prior:      entity.UrlRecord{URL: "https://old.example"},
			outcome:    redirectedOutcome("https://old.example", "https://new.example"),
			wantStreak: 0, wantRemoved: false, wantURL: "https://new.example",
		},
		{
			name:       "redirect resets failure streak",
			prior:      entity.UrlRecord{URL: "https://old.example", FailureStreak: 1},
			outcome:    redirectedOutcome("https://old.example", "https://new.example"),
			wantStreak: 0, wantRemoved: false, wantURL: "https://new.example",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := tc.prior
			Apply(&rec, tc.outcome, now)
			if rec.FailureStreak != tc.wantStreak {
				t.Fatalf("failure_streak=%d; want %d", rec.FailureStreak, tc.wantStreak)
			}
			if rec.Removed != tc.wantRemoved {
				t.Fatalf("removed=%v; want %v", rec.Removed, tc.wantRemoved)
			}
			if rec.URL != tc.wantURL {
				t.Fatalf("url=%q; want %q", rec.URL, tc.wantURL)
			}
			if rec.LastCheckedAt == nil {
				t.Fatal("last_checked_at not set")
			}
		})
	}
}

// removed=true must hold exactly when the streak reaches 2 with no
// intervening success, across any outcome sequence.
func TestRemovedIffStreakReachesTwo(t *testing.T) {
	sequences := [][]bool{ // true = valid outcome
		{false, false},
		{false, true, false},
		{false, true, false, false},
		{true, true, true},
		{false, false, true},
	}
	for _, seq := range sequences {
		rec := entity.UrlRecord{URL: "https://a.example"}
		streakSinceSuccess := 0
		for _, ok := range seq {
			var out entity.Outcome
			if ok {
				out = validOutcome(rec.URL)
				streakSinceSuccess = 0
			} else {
				out = invalidOutcome(rec.URL, "connection refused")
				streakSinceSuccess++
			}
			Apply(&rec, out, time.Now())

			wantRemoved := streakSinceSuccess >= 2
			if rec.Removed != wantRemoved {
				t.Fatalf("sequence %v: removed=%v; want %v", seq, rec.Removed, wantRemoved)
			}
		}
	}
}

func TestRepeatedSuccessNeverGrowsStreak(t *testing.T) {
	rec := entity.UrlRecord{URL: "https://a.example"}
	for i := 0; i < 5; i++ {
		Apply(&rec, validOutcome(rec.URL), time.Now())
		if rec.FailureStreak != 0 {
			t.Fatalf("iteration %d: failure_streak=%d; want 0", i, rec.FailureStreak)
		}
	}
}

// Running validation twice on an already-canonicalized URL with a stable
// target must not change the URL further.
func TestRedirectCanonicalizationIdempotent(t *testing.T) {
	rec := entity.UrlRecord{URL: "https://old.example"}

	Apply(&rec, redirectedOutcome("https://old.example", "https://new.example"), time.Now())
	if rec.URL != "https://new.example" {
		t.Fatalf("url=%q; want canonical target", rec.URL)
	}
	if rec.OriginalURL != "https://old.example" {
		t.Fatalf("original_url=%q; want pre-rewrite form", rec.OriginalURL)
	}

	// Second run probes the canonical URL and sees no hops.
	Apply(&rec, validOutcome("https://new.example"), time.Now())
	if rec.URL != "https://new.example" {
		t.Fatalf("url changed on second run: %q", rec.URL)
	}
	if rec.OriginalURL != "https://old.example" {
		t.Fatalf("original_url overwritten: %q", rec.OriginalURL)
	}
}
