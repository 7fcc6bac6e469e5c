package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	start = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	end   = start.Add(2 * time.Hour)
)

func TestDerive_WaitingCountdownDecreases(t *testing.T) {
	prev := time.Duration(1 << 62)
	for now := start.Add(-26 * time.Hour); now.Before(start); now = now.Add(17 * time.Minute) {
		st := Derive(now, start, end)
		require.Equal(t, Waiting, st.Phase)
		require.Less(t, st.Remaining, prev)
		prev = st.Remaining
	}
}

func TestDerive_Boundaries(t *testing.T) {
	require.Equal(t, Active, Derive(start, start, end).Phase)
	require.Equal(t, Active, Derive(end, start, end).Phase)
	require.Equal(t, Active, Derive(start.Add(time.Hour), start, end).Phase)
	require.Equal(t, Waiting, Derive(start.Add(-time.Nanosecond), start, end).Phase)
	require.Equal(t, Expired, Derive(end.Add(time.Nanosecond), start, end).Phase)
}

func TestDerive_ActiveDisplayCountsToEnd(t *testing.T) {
	st := Derive(start.Add(45*time.Minute), start, end)
	require.Equal(t, Active, st.Phase)
	require.Equal(t, "1h 15m", st.Display)
}

func TestDerive_Expired(t *testing.T) {
	st := Derive(end.Add(time.Hour), start, end)
	require.Equal(t, Expired, st.Phase)
	require.Zero(t, st.Remaining)
	require.Empty(t, st.Display)
}

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{2*time.Hour + 15*time.Minute + 30*time.Second, "2h 15m"},
		{45*time.Minute + 10*time.Second, "45m 10s"},
		{10*time.Second + 900*time.Millisecond, "10s"},
		{27 * time.Hour, "1d 3h"},
		{2 * time.Hour, "2h 0m"},
		{500 * time.Millisecond, "0s"},
		{-time.Minute, "0s"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, FormatCountdown(c.d), c.d.String())
	}
}

func TestFormatClock(t *testing.T) {
	require.Equal(t, "5:00", FormatClock(5*time.Minute))
	require.Equal(t, "0:09", FormatClock(9*time.Second))
	require.Equal(t, "0:00", FormatClock(-time.Second))
}

func TestTicker_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	tk := Start(ctx, 5*time.Millisecond, func(time.Time) bool {
		atomic.AddInt32(&calls, 1)
		return true
	})

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-tk.Done()

	n := atomic.LoadInt32(&calls)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, n, atomic.LoadInt32(&calls), "no calls after teardown")
}

func TestTicker_FnCanStop(t *testing.T) {
	var calls int32
	tk := Start(context.Background(), time.Millisecond, func(time.Time) bool {
		return atomic.AddInt32(&calls, 1) < 4
	})
	<-tk.Done()
	require.EqualValues(t, 4, atomic.LoadInt32(&calls))
	tk.Stop()
}
