package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/lumisim/internal/game/dice"
)

// TestRollResult_String verifies the audit string contains purpose, range and value.
func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{Purpose: "crit", Low: 0, High: 100, Value: 42.5}
	assert.Equal(t, "crit [0, 100) → 42.5000", r.String())
}

// TestRollResult_String_PanicsOnEmptyPurpose verifies that String() enforces
// its precondition and panics when Purpose is empty.
func TestRollResult_String_PanicsOnEmptyPurpose(t *testing.T) {
	r := dice.RollResult{Value: 1}
	assert.Panics(t, func() { _ = r.String() })
}

// TestCryptoSource_Intn_InRange verifies the postcondition:
// every value returned by Intn(6) is in [0, 6).
func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Float64_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

// TestCryptoSource_Intn_PanicsOnZero verifies the precondition:
// Intn panics when called with n <= 0.
func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

func TestSeededSource_SameSeedSameSequence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		a := dice.NewSeededSource(seed)
		b := dice.NewSeededSource(seed)
		for i := 0; i < 16; i++ {
			assert.Equal(rt, a.Float64(), b.Float64())
			assert.Equal(rt, a.Intn(100), b.Intn(100))
		}
	})
}

func TestFixedSource_Cycles(t *testing.T) {
	src := dice.NewFixedSource(0.1, 0.9)
	assert.Equal(t, 0.1, src.Float64())
	assert.Equal(t, 0.9, src.Float64())
	assert.Equal(t, 0.1, src.Float64())
	assert.Equal(t, 9, src.Intn(10))
}

func TestFixedSource_Empty_ReturnsZero(t *testing.T) {
	src := dice.NewFixedSource()
	assert.Equal(t, 0.0, src.Float64())
	assert.Equal(t, 0, src.Intn(3))
}

func TestRoller_Uniform_WithinRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		low := rapid.Float64Range(0, 1).Draw(rt, "low")
		v := rapid.Float64Range(0, 0.999).Draw(rt, "v")
		r := dice.NewLoggedRoller(dice.NewFixedSource(v), zap.NewNop())
		res := r.Uniform("mastery", low, 1)
		assert.GreaterOrEqual(rt, res.Value, low)
		assert.LessOrEqual(rt, res.Value, 1.0)
	})
}

func TestRoller_Uniform_EmptyRange_DoesNotConsume(t *testing.T) {
	src := dice.NewFixedSource(0.5, 0.25)
	r := dice.NewLoggedRoller(src, zap.NewNop())
	assert.Equal(t, 1.0, r.Uniform("mastery", 1, 1).Value)
	assert.Equal(t, 0.5, src.Float64(), "an empty range must not consume a value")
}

func TestRoller_Chance_Bounds(t *testing.T) {
	src := dice.NewFixedSource(0.5)
	r := dice.NewLoggedRoller(src, zap.NewNop())
	assert.False(t, r.Chance("reset", 0))
	assert.True(t, r.Chance("crit", 100))
	assert.True(t, r.Chance("crit", 60))
	assert.False(t, r.Chance("crit", 40))
}

func TestRoller_LogsEveryRoll(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(dice.NewFixedSource(0.3), zap.New(core))
	r.Percent("crit")
	r.Intn("lag", 10)
	require.Equal(t, 2, logs.Len())
	for _, e := range logs.All() {
		assert.Equal(t, "dice roll", e.Message)
	}
	assert.Equal(t, "crit", logs.All()[0].ContextMap()["purpose"])
}
