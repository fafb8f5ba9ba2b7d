package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOverwritesAndInserts(t *testing.T) {
	c := NewFeeCache()

	c.Merge(map[string]uint64{"a": 1, "b": 5})
	c.Merge(map[string]uint64{"a": 2})

	a, found := c.Lookup("a")
	require.True(t, found)
	assert.Equal(t, uint64(2), a)

	b, found := c.Lookup("b")
	require.True(t, found)
	assert.Equal(t, uint64(5), b, "unrelated keys are untouched")
	assert.Equal(t, 2, c.Len())
}

func TestLookupMissingIsDistinctFromZero(t *testing.T) {
	c := NewFeeCache()
	c.Merge(map[string]uint64{"zero": 0})

	value, found := c.Lookup("zero")
	assert.True(t, found)
	assert.Equal(t, uint64(0), value)

	value, found = c.Lookup("missing")
	assert.False(t, found)
	assert.Equal(t, uint64(0), value)
}

func TestMergeEmptyKeepsContents(t *testing.T) {
	c := NewFeeCache()
	c.Merge(map[string]uint64{"a": 1})
	c.Merge(nil)
	c.Merge(map[string]uint64{})

	assert.Equal(t, 1, c.Len())
}

func TestSnapshotIsIndependent(t *testing.T) {
	c := NewFeeCache()
	c.Merge(map[string]uint64{"a": 1})

	snap := c.Snapshot()
	snap["a"] = 99
	snap["b"] = 7

	a, _ := c.Lookup("a")
	assert.Equal(t, uint64(1), a)
	_, found := c.Lookup("b")
	assert.False(t, found)

	c.Merge(map[string]uint64{"c": 3})
	assert.NotContains(t, snap, "c")
}

func TestMergePrices(t *testing.T) {
	c := NewPriceCache()

	MergePrices(c, map[string]float64{"ethereum": 3000, "solana": 150}, "usd")
	MergePrices(c, map[string]float64{"ethereum": 2800}, "eur")

	eth, found := c.Lookup("ethereum")
	require.True(t, found)
	assert.Equal(t, Price{Value: 2800, Currency: "eur"}, eth)

	sol, found := c.Lookup("solana")
	require.True(t, found)
	assert.Equal(t, Price{Value: 150, Currency: "usd"}, sol, "stale entries persist until overwritten")
}
