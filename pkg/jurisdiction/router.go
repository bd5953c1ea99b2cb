// Package jurisdiction maps geographic evidence coordinates onto legal
// territory codes by bounding-box membership, and selects a primary
// jurisdiction by majority vote.
//
// Classification is always recomputed from coordinates. Assignments are
// never persisted, so there is no cached classification to go stale.
package jurisdiction

import (
	"sort"

	"github.com/caseproof/custody-core/pkg/contract"
)

// Code is a legal-territory code (ISO-like, e.g. "UAE", "ZA").
type Code string

// CodeUnknown is the sentinel primary when no coordinate matched any region.
// Callers route to jurisdiction-agnostic fallback guidance, never an error.
const CodeUnknown Code = "UNKNOWN"

// Assignment is the result of classifying a coordinate set.
type Assignment struct {
	Primary     Code   `json:"primary"`
	All         []Code `json:"all"`
	CrossBorder bool   `json:"crossBorder"`
}

// Router classifies coordinates against a fixed region table. It performs no
// I/O and is reentrant.
type Router struct {
	regions []Region
}

// NewRouter creates a router over an explicit region table.
func NewRouter(regions []Region) *Router {
	return &Router{regions: regions}
}

// NewDefaultRouter creates a router over the built-in region table.
func NewDefaultRouter() *Router {
	return NewRouter(DefaultRegions())
}

// Classify assigns jurisdiction codes to the coordinate set.
//
//   - Each coordinate votes for the region whose bounding box contains it;
//     unmatched coordinates contribute no vote
//   - Primary is the code with the most votes; ties break lexicographically
//     on code, so classification is deterministic
//   - CrossBorder is true iff more than one distinct code matched
//   - No matches at all yields Primary = UNKNOWN
func (r *Router) Classify(coords []contract.Coordinate) Assignment {
	votes := make(map[Code]int)
	for _, c := range coords {
		if !c.InRange() {
			continue
		}
		for _, region := range r.regions {
			if region.Contains(c.Latitude, c.Longitude) {
				votes[region.Code]++
				break
			}
		}
	}

	if len(votes) == 0 {
		return Assignment{Primary: CodeUnknown, All: []Code{}}
	}

	all := make([]Code, 0, len(votes))
	for code := range votes {
		all = append(all, code)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	primary := all[0]
	for _, code := range all[1:] {
		// Strictly more votes wins; on equal votes the lexicographically
		// smaller code (already in primary) stands.
		if votes[code] > votes[primary] {
			primary = code
		}
	}

	return Assignment{
		Primary:     primary,
		All:         all,
		CrossBorder: len(all) > 1,
	}
}
