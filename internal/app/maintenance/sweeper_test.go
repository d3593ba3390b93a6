package maintenance

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vitalboard/server/internal/records"
	"github.com/vitalboard/server/pkg/metrics"
)

func TestSweepCountsDuplicateEmails(t *testing.T) {
	store := records.NewMemoryStore()
	ctx := context.Background()

	write := func(path string) {
		_, err := store.Write(ctx, path, []byte("{}"))
		require.NoError(t, err)
	}

	// One email with two records, one clean.
	write("users/dup@x.com-11111111-2222-3333-4444-555555555555.json")
	write("users/dup@x.com-66666666-7777-8888-9999-aaaaaaaaaaaa.json")
	write("users/clean@x.com-11111111-2222-3333-4444-555555555555.json")

	sweeper, err := NewSweeper(store)
	require.NoError(t, err)

	require.NoError(t, sweeper.Sweep(ctx))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.DuplicateUserRecords))

	// Gauge drops back once the duplicate is gone. The memory store
	// overwrites in place, so rebuild a clean store.
	clean := records.NewMemoryStore()
	_, err = clean.Write(ctx, "users/dup@x.com-11111111-2222-3333-4444-555555555555.json", []byte("{}"))
	require.NoError(t, err)

	sweeper2, err := NewSweeper(clean)
	require.NoError(t, err)
	require.NoError(t, sweeper2.Sweep(ctx))
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.DuplicateUserRecords))
}

func TestGroupKeyStripsStoreSuffix(t *testing.T) {
	key := groupKey("users/a-b@x.com-11111111-2222-3333-4444-555555555555.json")
	require.Equal(t, "users/a-b@x.com", key)

	// Paths without the expected suffix group as themselves.
	odd := "users/legacy@x.com"
	require.Equal(t, odd, groupKey(odd))
}

func TestNewSweeperRequiresStore(t *testing.T) {
	_, err := NewSweeper(nil)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "record store"))
}
