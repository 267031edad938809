package geolib

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Snapshot is an immutable pair of RangeIndex and EntityTable.
type Snapshot struct {
	name     string
	index    *RangeIndex
	entities EntityTable
	logger   Logger
	builtAt  time.Time
	issues   int
}

func (s *Snapshot) Name() string {
	return s.name
}

func (s *Snapshot) Index() *RangeIndex {
	return s.index
}

func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// Issues returns a number of dataset problems found on build:
// malformed and duplicate networks.
func (s *Snapshot) Issues() int {
	return s.issues
}

// Resolve resolves a parsed IPv4 address against this snapshot.
func (s *Snapshot) Resolve(ctx context.Context, ip net.IP) (ResolvedLocation, error) {
	location, _, err := s.resolve(ctx, ip)

	return location, err
}

func (s *Snapshot) resolve(ctx context.Context, ip net.IP) (ResolvedLocation, bool, error) {
	match, ok := s.index.MostSpecificMatch(ip)
	if !ok {
		return ResolvedLocation{}, false, ErrNoMatch
	}

	if match.Ambiguous && s.logger != nil {
		s.logger.LookupWarning(ip.String(),
			fmt.Errorf("%w %s in %s: the first one is used", ErrDuplicateNetwork, match.Network, s.name))
	}

	entity, ok, err := s.entities.Lookup(ctx, match.Range.GeonameID)

	switch {
	case err != nil:
		return ResolvedLocation{}, match.Ambiguous,
			fmt.Errorf("%w %d: %v", ErrEntityLookup, match.Range.GeonameID, err)
	case !ok:
		return ResolvedLocation{}, match.Ambiguous,
			fmt.Errorf("%w: network %s refers to geoname_id %d", ErrMissingEntity, match.Network, match.Range.GeonameID)
	}

	return newResolvedLocation(match.Network, match.Range, entity), match.Ambiguous, nil
}

// NewSnapshot builds an index from a dataset. All dataset issues are
// reported to the logger, none of them aborts the build. Given logger
// may be nil.
func NewSnapshot(name string, dataset *Dataset, logger Logger) *Snapshot {
	index, issues := NewRangeIndex(dataset.Ranges)

	if logger != nil {
		for _, v := range issues {
			logger.BuildWarning(name, v)
		}
	}

	entities := dataset.Entities
	if entities == nil {
		entities = MemoryEntityTable{}
	}

	return &Snapshot{
		name:     name,
		index:    index,
		entities: entities,
		logger:   logger,
		builtAt:  time.Now(),
		issues:   len(issues),
	}
}
