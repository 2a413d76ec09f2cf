package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSubmitShareRejectsHashNotMeetingDifficulty(t *testing.T) {
	p := New(fixedClock(time.Unix(0, 0)))
	require.False(t, p.SubmitShare("alice", "abc123", 2))
}

func TestSubmitShareAcceptsQualifyingHash(t *testing.T) {
	p := New(fixedClock(time.Unix(0, 0)))
	require.True(t, p.SubmitShare("alice", "00abc123", 2))
	stats, ok := p.StatsFor("alice")
	require.True(t, ok)
	require.Equal(t, int64(1), stats.Shares)
}

func TestDistributeRewardSplitsProportionallyAndResets(t *testing.T) {
	p := New(fixedClock(time.Unix(0, 0)))
	for i := 0; i < 3; i++ {
		p.SubmitShare("alice", "000abc", 3)
	}
	p.SubmitShare("bob", "000def", 3)

	payouts := p.DistributeReward(40)
	total := map[string]float64{}
	for _, payout := range payouts {
		total[payout.Address] = payout.Amount
	}
	require.InDelta(t, 30, total["alice"], 1e-9)
	require.InDelta(t, 10, total["bob"], 1e-9)

	aliceStats, _ := p.StatsFor("alice")
	require.Equal(t, int64(0), aliceStats.Shares)
}

func TestDistributeRewardOnEmptyPoolYieldsNoPayouts(t *testing.T) {
	p := New(fixedClock(time.Unix(0, 0)))
	require.Nil(t, p.DistributeReward(50))
}

func TestJoinAndLeave(t *testing.T) {
	p := New(fixedClock(time.Unix(0, 0)))
	p.Join("carol")
	_, ok := p.StatsFor("carol")
	require.True(t, ok)

	p.Leave("carol")
	_, ok = p.StatsFor("carol")
	require.False(t, ok)
}
