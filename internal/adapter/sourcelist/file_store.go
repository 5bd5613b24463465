// Package sourcelist implements the source-list store on the local
// filesystem: one JSON document per country, replaced atomically via
// rename so a crash mid-write never leaves a partial list.
package sourcelist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/user/validator-service/internal/entity"
	"github.com/user/validator-service/internal/repository"
	"github.com/user/validator-service/pkg/utils"
)

const fileExt = ".json"

type countryDocument struct {
	CountryCode string             `json:"country_code"`
	UpdatedAt   time.Time          `json:"updated_at"`
	RecordCount int                `json:"record_count"`
	ActiveCount int                `json:"active_count"`
	Records     []entity.UrlRecord `json:"records"`
}

// FileStore provides a concrete implementation for the SourceListRepository interface.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create source list dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(country string) string {
	return filepath.Join(s.dir, utils.CountryCodeToFilename(country)+fileExt)
}

// LoadUrls reads the ordered record list for a country.
func (s *FileStore) LoadUrls(ctx context.Context, country string) ([]entity.UrlRecord, error) {
	data, err := os.ReadFile(s.path(country))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no source list for %s: %w", country, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read source list for %s: %w", country, err)
	}

	var doc countryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse source list for %s: %w", country, err)
	}
	return doc.Records, nil
}

// SaveUrls replaces the country's list. The document is written to a temp
// file in the same directory and renamed over the old one, so readers see
// either the old or the new list, never a mix.
func (s *FileStore) SaveUrls(ctx context.Context, country string, records []entity.UrlRecord) error {
	doc := countryDocument{
		CountryCode: country,
		UpdatedAt:   time.Now().UTC(),
		RecordCount: len(records),
		ActiveCount: len(entity.ActiveRecords(records)),
		Records:     records,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode source list for %s: %w", country, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+utils.CountryCodeToFilename(country)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", country, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write source list for %s: %w", country, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush source list for %s: %w", country, err)
	}

	if err := os.Rename(tmpName, s.path(country)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace source list for %s: %w", country, err)
	}
	return nil
}

// Countries lists the known country codes, sorted.
func (s *FileStore) Countries(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list source list dir: %w", err)
	}

	var countries []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		countries = append(countries, utils.CountryFilenameToCode(strings.TrimSuffix(name, fileExt)))
	}
	sort.Strings(countries)
	return countries, nil
}
