package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlacklist(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	ctx := context.Background()
	bl := NewMemoryBlacklist()
	require.NoError(t, bl.Revoke(ctx, "access", time.Hour))
	require.NoError(t, bl.Revoke(ctx, "expired", 0))

	tests := []struct {
		name    string
		tokenID string
		after   time.Duration
		want    bool
	}{
		{name: "revoked", tokenID: "access", want: true},
		{name: "unknown", tokenID: "other", want: false},
		{name: "zero ttl", tokenID: "expired", want: false},
		{name: "expired", tokenID: "access", after: time.Hour, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			current := now.Add(tc.after)
			NowFunc = func() time.Time { return current }

			revoked, err := bl.IsRevoked(ctx, tc.tokenID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, revoked)
		})
	}
}
