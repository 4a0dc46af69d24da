package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "incorp/pkg/domain-errors"
)

func TestComputeEvenSplit(t *testing.T) {
	got, err := Compute(100, []Split{
		{ParticipantID: "A", Percent: 60.0},
		{ParticipantID: "B", Percent: 40.0},
	})
	require.NoError(t, err)
	assert.Equal(t, []Allocation{
		{ParticipantID: "A", Shares: 60},
		{ParticipantID: "B", Shares: 40},
	}, got)
}

func TestComputeLargestRemainder(t *testing.T) {
	got, err := Compute(10, []Split{
		{ParticipantID: "A", Percent: 33.3},
		{ParticipantID: "B", Percent: 33.3},
		{ParticipantID: "C", Percent: 33.4},
	})
	require.NoError(t, err)

	var sum int64
	for _, a := range got {
		sum += a.Shares
	}
	assert.Equal(t, int64(10), sum, "shares must sum to total exactly")

	// Floors are 3/3/3; the leftover unit goes to C (largest fraction 0.34).
	assert.Equal(t, int64(3), got[0].Shares)
	assert.Equal(t, int64(3), got[1].Shares)
	assert.Equal(t, int64(4), got[2].Shares)
}

func TestComputeTieBreaksByInputOrder(t *testing.T) {
	// Equal fractions: the earlier participant wins the leftover unit.
	got, err := Compute(3, []Split{
		{ParticipantID: "A", Percent: 50.0},
		{ParticipantID: "B", Percent: 50.0},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got[0].Shares)
	assert.Equal(t, int64(1), got[1].Shares)
}

func TestComputeExactness(t *testing.T) {
	cases := []struct {
		name   string
		total  int64
		splits []Split
	}{
		{"three way", 1000, []Split{{"A", 33.33}, {"B", 33.33}, {"C", 33.34}}},
		{"seven way", 100, []Split{{"A", 14.3}, {"B", 14.3}, {"C", 14.3}, {"D", 14.3}, {"E", 14.3}, {"F", 14.3}, {"G", 14.2}}},
		{"uneven", 7, []Split{{"A", 90.0}, {"B", 10.0}}},
		{"tiny", 3, []Split{{"A", 66.7}, {"B", 33.3}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compute(tc.total, tc.splits)
			require.NoError(t, err)
			require.Len(t, got, len(tc.splits))

			var sum int64
			for _, a := range got {
				sum += a.Shares
				assert.GreaterOrEqual(t, a.Shares, int64(1))
			}
			assert.Equal(t, tc.total, sum)
		})
	}
}

func TestComputeEpsilonEdges(t *testing.T) {
	t.Run("sum just above 100 never over-allocates", func(t *testing.T) {
		// 50.004 + 50.004 = 100.008, inside epsilon. The floors alone give
		// 50004 + 50004 = 100008; the surplus must be clawed back.
		got, err := Compute(100000, []Split{
			{ParticipantID: "A", Percent: 50.004},
			{ParticipantID: "B", Percent: 50.004},
		})
		require.NoError(t, err)

		var sum int64
		for _, a := range got {
			sum += a.Shares
		}
		assert.Equal(t, int64(100000), sum, "shares must sum to total exactly")
	})

	t.Run("sum just below 100 never under-allocates", func(t *testing.T) {
		got, err := Compute(100000, []Split{
			{ParticipantID: "A", Percent: 49.996},
			{ParticipantID: "B", Percent: 49.996},
		})
		require.NoError(t, err)

		var sum int64
		for _, a := range got {
			sum += a.Shares
		}
		assert.Equal(t, int64(100000), sum)
	})

	t.Run("surplus reclaim stays deterministic", func(t *testing.T) {
		splits := []Split{{"A", 33.336}, {"B", 33.336}, {"C", 33.336}}
		first, err := Compute(100000, splits)
		require.NoError(t, err)

		var sum int64
		for _, a := range first {
			sum += a.Shares
		}
		require.Equal(t, int64(100000), sum)

		for i := 0; i < 20; i++ {
			again, err := Compute(100000, splits)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}

func TestComputeDeterminism(t *testing.T) {
	splits := []Split{{"A", 12.5}, {"B", 12.5}, {"C", 25.0}, {"D", 50.0}}
	first, err := Compute(13, splits)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		again, err := Compute(13, splits)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeRejections(t *testing.T) {
	t.Run("percentages must sum to 100", func(t *testing.T) {
		_, err := Compute(100, []Split{{"A", 60.0}, {"B", 30.0}})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAllocation))
	})

	t.Run("epsilon tolerates rounding noise", func(t *testing.T) {
		_, err := Compute(100, []Split{{"A", 33.33}, {"B", 33.33}, {"C", 33.34}})
		require.NoError(t, err)
	})

	t.Run("more participants than shares", func(t *testing.T) {
		_, err := Compute(2, []Split{{"A", 40.0}, {"B", 30.0}, {"C", 30.0}})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAllocation))
	})

	t.Run("zero-share participant is rejected, not dropped", func(t *testing.T) {
		// 0.01% of 100 shares floors to zero and no remainder saves it.
		_, err := Compute(100, []Split{{"A", 99.99}, {"B", 0.005}, {"C", 0.005}})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAllocation))
	})

	t.Run("non-positive percentage", func(t *testing.T) {
		_, err := Compute(100, []Split{{"A", 100.0}, {"B", 0.0}})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAllocation))
	})

	t.Run("empty splits", func(t *testing.T) {
		_, err := Compute(100, nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAllocation))
	})
}
