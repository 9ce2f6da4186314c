package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSQLiteLog_AppendAndRecent(t *testing.T) {
	log, err := NewSQLiteLog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	ctx := t.Context()
	base := time.Now()

	require.NoError(t, log.Append(ctx, Entry{
		PassID: "pass-1", Timestamp: base,
		Mode: "auto", Observed: "inactive", Desired: "running",
		Action: "start", Outcome: "ok",
	}))
	require.NoError(t, log.Append(ctx, Entry{
		PassID: "pass-2", Timestamp: base.Add(time.Minute),
		Mode: "auto", Observed: "active", Desired: "running",
		Action: "none", Outcome: "ok",
	}))

	entries, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Most recent first.
	require.Equal(t, "pass-2", entries[0].PassID)
	require.Equal(t, "none", entries[0].Action)
	require.Equal(t, "pass-1", entries[1].PassID)
	require.Equal(t, "start", entries[1].Action)
}

func TestSQLiteLog_RecentLimit(t *testing.T) {
	log, err := NewSQLiteLog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	ctx := t.Context()
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(ctx, Entry{
			PassID: "p", Timestamp: time.Now(),
			Mode: "auto", Observed: "active", Desired: "running",
			Action: "none", Outcome: "ok",
		}))
	}

	entries, err := log.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}
