// Package matching holds the pairing engine for a round's matching run.
// Pure: the caller supplies the candidate pool and exclusions, the engine
// returns groups. Seeded from the round ID so a re-run over the same pool
// produces the same pairing.
package matching

import (
	"encoding/binary"
	"math/rand"
	"sort"

	"github.com/google/uuid"
)

// ExclusionSet maps a participant to the participants they must not be
// paired with again (already met in this session).
type ExclusionSet map[uuid.UUID]map[uuid.UUID]bool

// Excluded reports whether a and b may not be paired.
func (e ExclusionSet) Excluded(a, b uuid.UUID) bool {
	if e == nil {
		return false
	}
	return e[a][b] || e[b][a]
}

// Add records that a and b have met.
func (e ExclusionSet) Add(a, b uuid.UUID) {
	if e[a] == nil {
		e[a] = make(map[uuid.UUID]bool)
	}
	if e[b] == nil {
		e[b] = make(map[uuid.UUID]bool)
	}
	e[a][b] = true
	e[b][a] = true
}

// Pairing is the result of a matching run.
type Pairing struct {
	Groups    [][]uuid.UUID
	Unmatched []uuid.UUID
}

// Options tunes a matching run.
type Options struct {
	// AllowTriple folds a leftover participant into an existing pair
	// instead of leaving them unmatched.
	AllowTriple bool
}

// Pair shuffles the pool with a round-derived seed and greedily forms pairs,
// skipping excluded combinations. With an odd pool the leftover either joins
// the last group (AllowTriple) or lands in Unmatched.
func Pair(roundID uuid.UUID, pool []uuid.UUID, exclusions ExclusionSet, opts Options) Pairing {
	// Sort first so the shuffle is a pure function of (round, pool),
	// independent of the caller's ordering.
	candidates := make([]uuid.UUID, len(pool))
	copy(candidates, pool)
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].String() < candidates[j].String()
	})

	rng := rand.New(rand.NewSource(seedFrom(roundID)))
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	var p Pairing
	used := make(map[uuid.UUID]bool, len(candidates))

	for i, a := range candidates {
		if used[a] {
			continue
		}
		partnerIdx := -1
		for j := i + 1; j < len(candidates); j++ {
			b := candidates[j]
			if used[b] || exclusions.Excluded(a, b) {
				continue
			}
			partnerIdx = j
			break
		}
		if partnerIdx == -1 {
			p.Unmatched = append(p.Unmatched, a)
			used[a] = true
			continue
		}
		b := candidates[partnerIdx]
		used[a], used[b] = true, true
		p.Groups = append(p.Groups, []uuid.UUID{a, b})
	}

	// Greedy can strand two mutually-excluded leftovers. Repair by swapping
	// them into an existing group when the cross pairings are permitted.
	if len(p.Unmatched) >= 2 {
		p.repair(exclusions)
	}

	// Fold a single leftover into the last group where permitted and not
	// excluded against either member.
	if opts.AllowTriple && len(p.Unmatched) == 1 && len(p.Groups) > 0 {
		leftover := p.Unmatched[0]
		last := p.Groups[len(p.Groups)-1]
		if !exclusions.Excluded(leftover, last[0]) && !exclusions.Excluded(leftover, last[1]) {
			p.Groups[len(p.Groups)-1] = append(last, leftover)
			p.Unmatched = nil
		}
	}

	return p
}

// repair resolves leftover pairs blocked only by each other: for leftovers
// (a, b), find a pair (x, y) whose members can cross over, yielding (a, x)
// and (b, y) or (a, y) and (b, x).
func (p *Pairing) repair(exclusions ExclusionSet) {
	var still []uuid.UUID
	i := 0
	for i < len(p.Unmatched) {
		if i+1 >= len(p.Unmatched) {
			still = append(still, p.Unmatched[i])
			break
		}
		a, b := p.Unmatched[i], p.Unmatched[i+1]
		swapped := false
		for gi, g := range p.Groups {
			if len(g) != 2 {
				continue
			}
			x, y := g[0], g[1]
			switch {
			case !exclusions.Excluded(a, x) && !exclusions.Excluded(b, y):
				p.Groups[gi] = []uuid.UUID{a, x}
				p.Groups = append(p.Groups, []uuid.UUID{b, y})
				swapped = true
			case !exclusions.Excluded(a, y) && !exclusions.Excluded(b, x):
				p.Groups[gi] = []uuid.UUID{a, y}
				p.Groups = append(p.Groups, []uuid.UUID{b, x})
				swapped = true
			}
			if swapped {
				break
			}
		}
		if !swapped {
			still = append(still, a, b)
		}
		i += 2
	}
	p.Unmatched = still
}

// AssignMeetingPoints distributes meeting points over groups round-robin.
// Returns one point ID per group; empty when no points exist.
func AssignMeetingPoints(groups [][]uuid.UUID, pointIDs []uuid.UUID) []uuid.UUID {
	if len(pointIDs) == 0 {
		return nil
	}
	out := make([]uuid.UUID, len(groups))
	for i := range groups {
		out[i] = pointIDs[i%len(pointIDs)]
	}
	return out
}

func seedFrom(roundID uuid.UUID) int64 {
	b := roundID[:]
	return int64(binary.BigEndian.Uint64(b[:8]) ^ binary.BigEndian.Uint64(b[8:]))
}
