package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/poiesic/reportlens/core"
)

// DedupPolicy decides which occurrence survives when the same entity is
// reported by two chunks that share an overlap region.
type DedupPolicy int

const (
	// DedupPreferEarlier keeps the span from the earlier chunk. When the
	// chunks disagree on the category, the category comes from the occurrence
	// with more context around it.
	DedupPreferEarlier DedupPolicy = iota

	// DedupWidestContext keeps the whole occurrence, span and category, that
	// has more context around it. Ties go to the earlier chunk.
	DedupWidestContext
)

// String returns the policy name used in configuration files.
func (d DedupPolicy) String() string {
	switch d {
	case DedupPreferEarlier:
		return "prefer-earlier"
	case DedupWidestContext:
		return "widest-context"
	}
	return fmt.Sprintf("DedupPolicy(%d)", int(d))
}

// ParseDedupPolicy parses a policy name. The empty string selects the default.
func ParseDedupPolicy(name string) (DedupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "prefer-earlier", "earlier":
		return DedupPreferEarlier, nil
	case "widest-context", "widest":
		return DedupWidestContext, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDedupPolicy, name)
}

// candidate is an entity remapped to the original text, tagged with the
// chunk that reported it.
type candidate struct {
	entity core.Entity
	chunk  int

	// margin is the distance in bytes from the entity to the nearest chunk
	// edge that borders another chunk.
	margin int
}

// duplicates reports whether b repeats a. Overlapping spans from different
// chunks describe the same mention seen twice through the overlap region;
// within one chunk only an identical span is a repeat.
func duplicates(a, b candidate) bool {
	if a.chunk == b.chunk {
		return a.entity.Start == b.entity.Start && a.entity.End == b.entity.End
	}
	return a.entity.Start < b.entity.End && b.entity.Start < a.entity.End
}

// mergeEntities deduplicates candidates from all chunks. The result does not
// depend on the order of the input and is never longer than it.
func mergeEntities(candidates []candidate, policy DedupPolicy) []core.Entity {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.entity.Start != b.entity.Start {
			return a.entity.Start < b.entity.Start
		}
		if a.chunk != b.chunk {
			return a.chunk < b.chunk
		}
		if a.entity.End != b.entity.End {
			return a.entity.End < b.entity.End
		}
		return a.entity.Category < b.entity.Category
	})

	merged := make([]candidate, 0, len(sorted))
	for _, c := range sorted {
		dup := -1
		for j := range merged {
			if duplicates(merged[j], c) {
				dup = j
				break
			}
		}
		if dup < 0 {
			merged = append(merged, c)
			continue
		}
		merged[dup] = resolve(merged[dup], c, policy)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i].entity, merged[j].entity
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Category < b.Category
	})

	entities := make([]core.Entity, len(merged))
	for i, c := range merged {
		entities[i] = c.entity
	}
	return entities
}

// resolve picks the surviving occurrence of a duplicated mention.
func resolve(a, b candidate, policy DedupPolicy) candidate {
	earlier, later := a, b
	if later.chunk < earlier.chunk {
		earlier, later = later, earlier
	}
	wider := earlier
	if later.margin > earlier.margin {
		wider = later
	}

	switch policy {
	case DedupWidestContext:
		return wider
	default:
		kept := earlier
		kept.entity.Category = wider.entity.Category
		kept.margin = max(earlier.margin, later.margin)
		return kept
	}
}
