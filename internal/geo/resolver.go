package geo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/wage-etl/internal/census"
)

// Wildcard selects every known state.
const Wildcard = "*"

// CountySource enumerates counties for a state. Satisfied by census.Client.
type CountySource interface {
	GetCounties(ctx context.Context, stateFIPS string) ([]census.County, error)
}

// Resolver expands a target-state specification into concrete county codes.
type Resolver struct {
	counties CountySource
}

// NewResolver creates a resolver backed by the given county source.
func NewResolver(counties CountySource) *Resolver {
	return &Resolver{counties: counties}
}

// ResolveStates converts a target specification into state FIPS codes.
// The single-element wildcard "*" expands to all known states; otherwise each
// entry is an abbreviation looked up case-insensitively. An unknown
// abbreviation is a configuration error and fails the whole resolution.
func ResolveStates(targets []string) ([]string, error) {
	if len(targets) == 1 && targets[0] == Wildcard {
		return AllStateFIPS(), nil
	}

	codes := make([]string, 0, len(targets))
	for _, target := range targets {
		abbr := strings.ToUpper(strings.TrimSpace(target))
		fips, ok := StateFIPSFor(abbr)
		if !ok {
			return nil, fmt.Errorf("unknown state abbreviation: %q", target)
		}
		codes = append(codes, fips)
	}
	return codes, nil
}

// Resolve expands a target specification into the full county list, state by
// state, in FIPS order.
func (r *Resolver) Resolve(ctx context.Context, targets []string) ([]census.County, error) {
	states, err := ResolveStates(targets)
	if err != nil {
		return nil, err
	}

	var all []census.County
	for _, stateFIPS := range states {
		counties, err := r.counties.GetCounties(ctx, stateFIPS)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate counties for state %s: %w", stateFIPS, err)
		}
		all = append(all, counties...)
	}
	return all, nil
}
