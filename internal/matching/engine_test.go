package matching

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pool(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestPair_EvenPoolAllPaired(t *testing.T) {
	roundID := uuid.New()
	p := Pair(roundID, pool(10), nil, Options{})

	assert.Len(t, p.Groups, 5)
	assert.Empty(t, p.Unmatched)
	for _, g := range p.Groups {
		assert.Len(t, g, 2)
	}
}

func TestPair_OddPoolWithTriple(t *testing.T) {
	p := Pair(uuid.New(), pool(7), nil, Options{AllowTriple: true})

	assert.Empty(t, p.Unmatched)
	require.Len(t, p.Groups, 3)
	sizes := map[int]int{}
	for _, g := range p.Groups {
		sizes[len(g)]++
	}
	assert.Equal(t, 2, sizes[2])
	assert.Equal(t, 1, sizes[3])
}

func TestPair_OddPoolWithoutTriple(t *testing.T) {
	p := Pair(uuid.New(), pool(7), nil, Options{})

	assert.Len(t, p.Groups, 3)
	assert.Len(t, p.Unmatched, 1)
}

func TestPair_SingleParticipantUnmatched(t *testing.T) {
	p := Pair(uuid.New(), pool(1), nil, Options{AllowTriple: true})

	assert.Empty(t, p.Groups)
	assert.Len(t, p.Unmatched, 1)
}

func TestPair_Deterministic(t *testing.T) {
	roundID := uuid.New()
	candidates := pool(8)

	a := Pair(roundID, candidates, nil, Options{})
	// same round and pool in different order must yield the same pairing
	reversed := make([]uuid.UUID, len(candidates))
	for i, id := range candidates {
		reversed[len(candidates)-1-i] = id
	}
	b := Pair(roundID, reversed, nil, Options{})

	assert.Equal(t, a.Groups, b.Groups)
}

func TestPair_RespectsExclusions(t *testing.T) {
	candidates := pool(2)
	exclusions := ExclusionSet{}
	exclusions.Add(candidates[0], candidates[1])

	p := Pair(uuid.New(), candidates, exclusions, Options{})

	assert.Empty(t, p.Groups)
	assert.Len(t, p.Unmatched, 2)
}

func TestPair_ExclusionsRerouted(t *testing.T) {
	// four participants, one forbidden pair: everyone must still be matched
	candidates := pool(4)
	exclusions := ExclusionSet{}
	exclusions.Add(candidates[0], candidates[1])

	p := Pair(uuid.New(), candidates, exclusions, Options{})

	assert.Len(t, p.Groups, 2)
	assert.Empty(t, p.Unmatched)
	for _, g := range p.Groups {
		assert.False(t, exclusions.Excluded(g[0], g[1]))
	}
}

func TestAssignMeetingPoints(t *testing.T) {
	groups := [][]uuid.UUID{{uuid.New(), uuid.New()}, {uuid.New(), uuid.New()}, {uuid.New(), uuid.New()}}
	points := []uuid.UUID{uuid.New(), uuid.New()}

	assigned := AssignMeetingPoints(groups, points)

	require.Len(t, assigned, 3)
	assert.Equal(t, points[0], assigned[0])
	assert.Equal(t, points[1], assigned[1])
	assert.Equal(t, points[0], assigned[2])

	assert.Nil(t, AssignMeetingPoints(groups, nil))
}
