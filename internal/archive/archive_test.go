package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankPtr(v int) *int { return &v }

func TestRecordAndQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.db")

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	now := time.Unix(1000, 0).UTC()
	require.NoError(t, a.RecordAccepted(ctx, AcceptedRecord{Seed: 1, Score: 0.5, Rank: rankPtr(17), AcceptedAt: now}))
	require.NoError(t, a.RecordAccepted(ctx, AcceptedRecord{Seed: 2, Score: 0.9, Rank: rankPtr(1), AcceptedAt: now.Add(time.Second)}))
	require.NoError(t, a.RecordAccepted(ctx, AcceptedRecord{Seed: 3, Score: 0.1, AcceptedAt: now.Add(2 * time.Second)}))

	n, err := a.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	top, err := a.TopN(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, uint64(2), top[0].Seed)
	assert.Equal(t, uint64(1), top[1].Seed)
	require.NotNil(t, top[0].Rank)
	assert.Equal(t, 1, *top[0].Rank)
}

func TestTopNOmitsNilRank(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.db")

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.RecordAccepted(ctx, AcceptedRecord{Seed: 9, Score: 0.2, AcceptedAt: time.Unix(0, 0)}))

	top, err := a.TopN(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Nil(t, top[0].Rank)
}

func TestReopenPreservesData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.db")

	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.RecordAccepted(ctx, AcceptedRecord{Seed: 5, Score: 0.7, AcceptedAt: time.Unix(5, 0)}))
	require.NoError(t, a.Close())

	a2, err := Open(path)
	require.NoError(t, err)
	defer a2.Close()

	n, err := a2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
