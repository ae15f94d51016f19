package lum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndCount(t *testing.T) {
	r := New("a", 5, Linear)
	assert.Equal(t, int64(5), r.Count())
	assert.True(t, r.Valid())
	assert.False(t, r.Empty())

	assert.Equal(t, int64(0), New("z", -3, Linear).Count())
	assert.True(t, New("z", 0, Linear).Empty())
}

func TestCountBounds(t *testing.T) {
	require.NoError(t, CheckCount("a", MaxCount))
	err := CheckCount("a", MaxCount+1)
	var ce *CountOverflowError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CountOverflowError{ID: "a", Count: MaxCount + 1}, *ce)

	total, err := Sum("a", MaxCount-1, 1)
	require.NoError(t, err)
	assert.Equal(t, MaxCount, total)

	_, err = Sum("a", MaxCount, MaxCount)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2*MaxCount, ce.Count)

	_, err = Sum("a", 5, math.MaxInt64)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int64(math.MaxInt64), ce.Count)
}

func TestCountIgnoresAbsentUnits(t *testing.T) {
	r := Resource{ID: "x", Units: []Unit{Present, Absent, Present}}
	assert.Equal(t, int64(2), r.Count())
	assert.True(t, r.Valid())

	r.Units = append(r.Units, Unit(2))
	assert.False(t, r.Valid())
}

func TestFuse(t *testing.T) {
	out := Fuse(New("a", 3, Linear), New("b", 4, Linear))
	require.Equal(t, KindSingle, out.Kind())

	r, ok := out.Single()
	require.True(t, ok)
	assert.Equal(t, int64(7), r.Count())
	assert.Equal(t, Cluster, r.Structure)

	_, ok = out.Many()
	assert.False(t, ok)
}

func TestSplitTieBreak(t *testing.T) {
	tests := []struct {
		name  string
		count int64
		parts int
		want  []int64
	}{
		{"5 into 2", 5, 2, []int64{3, 2}},
		{"6 into 3", 6, 3, []int64{2, 2, 2}},
		{"7 into 3", 7, 3, []int64{3, 2, 2}},
		{"2 into 4", 2, 4, []int64{1, 1, 0, 0}},
		{"0 into 2", 0, 2, []int64{0, 0}},
		{"one part", 9, 1, []int64{9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Split(New("s", tt.count, Linear), tt.parts)
			require.NoError(t, err)

			parts, ok := out.Many()
			require.True(t, ok)
			got := make([]int64, len(parts))
			for i, p := range parts {
				got[i] = p.Count()
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.count, out.Count(), "split conserves units")
		})
	}
}

func TestSplitZeroParts(t *testing.T) {
	_, err := Split(New("s", 4, Linear), 0)
	assert.ErrorIs(t, err, ErrNoParts)
}

func TestTake(t *testing.T) {
	out, err := Take(New("a", 5, Linear), 2)
	require.NoError(t, err)

	parts, ok := out.Many()
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, int64(3), parts[0].Count())
	assert.Equal(t, int64(2), parts[1].Count())

	_, err = Take(New("a", 1, Linear), 2)
	var ie *InsufficientUnitsError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, int64(1), ie.Have)
	assert.Equal(t, int64(2), ie.Requested)
}

func TestReduce(t *testing.T) {
	out, err := Reduce(New("a", 7, Linear), 3)
	require.NoError(t, err)
	r, ok := out.Single()
	require.True(t, ok)
	assert.Equal(t, int64(1), r.Count())

	_, err = Reduce(New("a", 7, Linear), 0)
	assert.ErrorIs(t, err, ErrBadModulus)
}

func TestStructureNames(t *testing.T) {
	for _, s := range []Structure{Linear, Cluster, Node, Memory} {
		got, ok := ParseStructure(s.String())
		require.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := ParseStructure("ring")
	assert.False(t, ok)
}

func TestOutcomeZeroValue(t *testing.T) {
	var o Outcome
	assert.Equal(t, "invalid", o.Kind().String())
	assert.Nil(t, o.Resources())
}
