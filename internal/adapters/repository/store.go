// Package repository holds the immutable case-record snapshots that every
// evaluation reads from.
package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rtmonitor/internal/domain/linelist"
)

// Snapshot is one ingested record set with its region catalog. A snapshot
// is never modified after it is built; readers share it without locking.
type Snapshot struct {
	ID       string
	Source   string
	LoadedAt time.Time
	Records  []*linelist.Record
	Report   linelist.Report

	regions        []string
	municipalities map[string][]string
	all            []string
}

// NewSnapshot builds a snapshot and its catalog. Records are not copied.
func NewSnapshot(source string, records []*linelist.Record, report linelist.Report, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		ID:             uuid.NewString(),
		Source:         source,
		LoadedAt:       loadedAt,
		Records:        records,
		Report:         report,
		municipalities: make(map[string][]string),
	}

	byRegion := make(map[string]map[string]struct{})
	every := make(map[string]struct{})
	for _, r := range records {
		if r.Region == linelist.Missing {
			continue
		}
		set, ok := byRegion[r.Region]
		if !ok {
			set = make(map[string]struct{})
			byRegion[r.Region] = set
		}
		if r.Municipality != linelist.Missing {
			set[r.Municipality] = struct{}{}
			every[r.Municipality] = struct{}{}
		}
	}
	for region, set := range byRegion {
		s.regions = append(s.regions, region)
		s.municipalities[region] = sortedKeys(set)
	}
	sort.Strings(s.regions)
	s.all = sortedKeys(every)
	return s
}

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.Records) }

// Regions returns the sorted distinct regions.
func (s *Snapshot) Regions() []string {
	return append([]string(nil), s.regions...)
}

// Municipalities returns the sorted municipalities of region, or of every
// region when region is empty. Unknown regions yield ErrUnknownRegion.
func (s *Snapshot) Municipalities(region string) ([]string, error) {
	if region == "" {
		return append([]string(nil), s.all...), nil
	}
	m, ok := s.municipalities[region]
	if !ok {
		return nil, ErrUnknownRegion
	}
	return append([]string(nil), m...), nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Store publishes and serves the current snapshot.
type Store interface {
	// Publish builds a snapshot from records and makes it current.
	Publish(ctx context.Context, source string, records []*linelist.Record, report linelist.Report) (*Snapshot, error)

	// Current returns the latest snapshot, or ErrNoSnapshot before the
	// first Publish.
	Current(ctx context.Context) (*Snapshot, error)

	// Close stops background work.
	Close() error
}
