package repository

import (
	"context"
	"errors"

	"github.com/user/validator-service/internal/entity"
)

// ErrNotFound is returned when a country has no source list.
var ErrNotFound = errors.New("source list not found")

// SourceListRepository is the opaque key-value list store holding each
// country's URL records.
type SourceListRepository interface {
	// LoadUrls returns the ordered record list for a country.
	LoadUrls(ctx context.Context, country string) ([]entity.UrlRecord, error)
	// SaveUrls replaces the record list for a country. The write is
	// atomic: a crash mid-write must not leave a partially updated list.
	SaveUrls(ctx context.Context, country string, records []entity.UrlRecord) error
	// Countries lists the known country codes, sorted.
	Countries(ctx context.Context) ([]string, error)
}
