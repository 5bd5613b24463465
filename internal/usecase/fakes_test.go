package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/user/validator-service/internal/entity"
	"github.com/user/validator-service/internal/repository"
)

// In-memory doubles for the repository interfaces. The unit repo mirrors
// the store's semantics: claims and reports are atomic conditional
// updates, never read-then-write.

type fakeCycleRepo struct {
	mu     sync.Mutex
	cycles map[string]*entity.ValidationCycle
	closes int
}

func newFakeCycleRepo() *fakeCycleRepo {
	return &fakeCycleRepo{cycles: make(map[string]*entity.ValidationCycle)}
}

func (r *fakeCycleRepo) Create(ctx context.Context, cycle *entity.ValidationCycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cycles {
		if c.ClosedAt == nil {
			return repository.ErrCycleOpen
		}
	}
	cp := *cycle
	r.cycles[cycle.CycleID] = &cp
	return nil
}

func (r *fakeCycleRepo) FindOpen(ctx context.Context) (*entity.ValidationCycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cycles {
		if c.ClosedAt == nil {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNoOpenCycle
}

func (r *fakeCycleRepo) Close(ctx context.Context, cycleID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[cycleID]
	if !ok || c.ClosedAt != nil {
		return false, nil
	}
	now := time.Now()
	c.ClosedAt = &now
	r.closes++
	return true, nil
}

type fakeUnitRepo struct {
	mu    sync.Mutex
	units map[string]map[string]*entity.CountryUnit // cycleID -> country -> unit
}

func newFakeUnitRepo() *fakeUnitRepo {
	return &fakeUnitRepo{units: make(map[string]map[string]*entity.CountryUnit)}
}

func (r *fakeUnitRepo) CreateBatch(ctx context.Context, cycleID string, countries []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.units[cycleID] == nil {
		r.units[cycleID] = make(map[string]*entity.CountryUnit)
	}
	for _, c := range countries {
		if _, exists := r.units[cycleID][c]; !exists {
			r.units[cycleID][c] = &entity.CountryUnit{
				CycleID:     cycleID,
				CountryCode: c,
				Status:      entity.UnitStatusPending,
			}
		}
	}
	return nil
}

func (r *fakeUnitRepo) ClaimNext(ctx context.Context, cycleID string, n int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []string
	for c, u := range r.units[cycleID] {
		if u.Status == entity.UnitStatusPending {
			pending = append(pending, c)
		}
	}
	sort.Strings(pending)
	if len(pending) > n {
		pending = pending[:n]
	}
	now := time.Now()
	for _, c := range pending {
		u := r.units[cycleID][c]
		u.Status = entity.UnitStatusProcessing
		started := now
		u.StartedAt = &started
	}
	return pending, nil
}

func (r *fakeUnitRepo) Release(ctx context.Context, cycleID, country string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[cycleID][country]
	if !ok || u.Status != entity.UnitStatusProcessing {
		return repository.ErrUnitNotProcessing
	}
	u.Status = entity.UnitStatusPending
	u.StartedAt = nil
	return nil
}

func (r *fakeUnitRepo) ReportOutcome(ctx context.Context, cycleID, country string, status entity.UnitStatus, errorSummary string, summary *entity.ScanSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[cycleID][country]
	if !ok || u.Status != entity.UnitStatusProcessing {
		return repository.ErrUnitNotProcessing
	}
	now := time.Now()
	u.Status = status
	u.CompletedAt = &now
	u.ErrorSummary = errorSummary
	u.Summary = summary
	return nil
}

func (r *fakeUnitRepo) ReclaimStale(ctx context.Context, cycleID string, olderThan time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	reclaimed := 0
	for _, u := range r.units[cycleID] {
		if u.Status == entity.UnitStatusProcessing && u.StartedAt != nil && u.StartedAt.Before(cutoff) {
			u.Status = entity.UnitStatusPending
			u.StartedAt = nil
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (r *fakeUnitRepo) Progress(ctx context.Context, cycleID string) (*entity.CycleProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &entity.CycleProgress{CycleID: cycleID}
	for _, u := range r.units[cycleID] {
		p.Total++
		switch u.Status {
		case entity.UnitStatusCompleted:
			p.Completed++
		case entity.UnitStatusProcessing:
			p.Processing++
		case entity.UnitStatusPending:
			p.Pending++
		case entity.UnitStatusFailed:
			p.Failed++
		}
	}
	return p, nil
}

func (r *fakeUnitRepo) List(ctx context.Context, cycleID string) ([]entity.CountryUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var units []entity.CountryUnit
	for _, u := range r.units[cycleID] {
		units = append(units, *u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].CountryCode < units[j].CountryCode })
	return units, nil
}

func (r *fakeUnitRepo) SetProgressHandle(ctx context.Context, cycleID, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.units[cycleID] {
		if u.ProgressHandle == "" {
			u.ProgressHandle = handle
		}
	}
	return nil
}

func (r *fakeUnitRepo) status(cycleID, country string) entity.UnitStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.units[cycleID][country].Status
}

type fakeSourceList struct {
	mu    sync.Mutex
	lists map[string][]entity.UrlRecord
	saves int
}

func newFakeSourceList() *fakeSourceList {
	return &fakeSourceList{lists: make(map[string][]entity.UrlRecord)}
}

func (s *fakeSourceList) LoadUrls(ctx context.Context, country string) ([]entity.UrlRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.lists[country]
	if !ok {
		return nil, fmt.Errorf("no source list for %s: %w", country, repository.ErrNotFound)
	}
	out := make([]entity.UrlRecord, len(records))
	copy(out, records)
	return out, nil
}

func (s *fakeSourceList) SaveUrls(ctx context.Context, country string, records []entity.UrlRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.UrlRecord, len(records))
	copy(out, records)
	s.lists[country] = out
	s.saves++
	return nil
}

func (s *fakeSourceList) Countries(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var countries []string
	for c := range s.lists {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	return countries, nil
}

type fakeResultRepo struct {
	mu      sync.Mutex
	results []entity.ValidationResult
}

func (r *fakeResultRepo) SaveAll(ctx context.Context, results []entity.ValidationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, results...)
	return nil
}

type fakeProber struct {
	mu     sync.Mutex
	probe  func(url string) entity.Outcome
	probed []string
}

func (p *fakeProber) Probe(ctx context.Context, url string) (entity.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return entity.Outcome{}, err
	}
	p.mu.Lock()
	p.probed = append(p.probed, url)
	p.mu.Unlock()
	out := p.probe(url)
	out.URL = url
	if out.FinalURL == "" {
		out.FinalURL = url
	}
	out.ValidatedAt = time.Now().UTC()
	return out, nil
}

func (p *fakeProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.probed)
}

type fakeSink struct {
	mu      sync.Mutex
	opens   int
	updates int
	closes  int
}

func (s *fakeSink) Open(ctx context.Context, cycleID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	return "handle-" + cycleID, nil
}

func (s *fakeSink) Update(ctx context.Context, handle string, progress entity.CycleProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	return nil
}

func (s *fakeSink) Close(ctx context.Context, handle string, progress entity.CycleProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

type fakeScanner struct {
	mu      sync.Mutex
	scan    func(country string) (*entity.ScanSummary, error)
	scanned []string
}

func (s *fakeScanner) ScanCountry(ctx context.Context, country string) (*entity.ScanSummary, error) {
	s.mu.Lock()
	s.scanned = append(s.scanned, country)
	s.mu.Unlock()
	if s.scan != nil {
		return s.scan(country)
	}
	return &entity.ScanSummary{CountryCode: country}, nil
}

type fakeProbeCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeProbeCache() *fakeProbeCache {
	return &fakeProbeCache{seen: make(map[string]bool)}
}

func (c *fakeProbeCache) Seen(ctx context.Context, url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[url], nil
}

func (c *fakeProbeCache) MarkProbed(ctx context.Context, url string, expiry time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[url] = true
	return nil
}
