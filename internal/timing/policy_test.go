package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wonderelo/wonderelo/internal/models"
)

func testParams() models.SystemParams {
	return models.SystemParams{
		ConfirmationWindowMin: 5,
		WalkingTimeMin:        3,
		SafetyWindowMin:       2,
		NetworkingMin:         8,
	}
}

func TestCompute(t *testing.T) {
	start := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)

	b := Compute(start, testParams())

	assert.Equal(t, start.Add(-5*time.Minute), b.ConfirmationStart)
	assert.Equal(t, start.Add(-2*time.Minute), b.RegistrationCloses)
	assert.Equal(t, start, b.MatchingInstant)
}

func TestWalkingDeadline(t *testing.T) {
	revealed := time.Date(2026, 3, 14, 14, 0, 10, 0, time.UTC)

	deadline := WalkingDeadline(revealed, testParams())

	assert.Equal(t, revealed.Add(3*time.Minute), deadline)
}

func TestNetworkingEnd(t *testing.T) {
	met := time.Date(2026, 3, 14, 14, 2, 0, 0, time.UTC)

	assert.Equal(t, met.Add(8*time.Minute), NetworkingEnd(met, testParams()))
}

func TestRegistrationOpen(t *testing.T) {
	start := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	params := testParams()

	assert.True(t, RegistrationOpen(start.Add(-10*time.Minute), start, params))
	// boundary: at the cutoff exactly, registration is closed
	assert.False(t, RegistrationOpen(start.Add(-2*time.Minute), start, params))
	assert.False(t, RegistrationOpen(start.Add(-1*time.Minute), start, params))
}
