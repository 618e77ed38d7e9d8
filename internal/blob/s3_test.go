package blob

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconsole/internal/testutil"
)

func newFakeS3(t *testing.T) string {
	t.Helper()
	faker := gofakes3.New(s3mem.New())
	ts := httptest.NewServer(faker.Server())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	endpoint := newFakeS3(t)

	s, err := NewS3(ctx, Config{
		Endpoint:        endpoint,
		Bucket:          "console-files",
		AccessKey:       "key",
		SecretKey:       "secret",
		Prefix:          "/files/",
		UnsignedPayload: true,
		Logger:          testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	payload := []byte{0x00, 0xff, 0x10, 'a', 'b'}
	require.NoError(t, s.Put(ctx, "one", payload, "application/octet-stream"))

	got, err := s.Get(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, s.Delete(ctx, "one"))
	_, err = s.Get(ctx, "one")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "never-existed"))
}

func TestNewS3_ExistingBucket(t *testing.T) {
	ctx := context.Background()
	endpoint := newFakeS3(t)
	cfg := Config{Endpoint: endpoint, Bucket: "shared", AccessKey: "k", SecretKey: "s", UnsignedPayload: true}

	first, err := NewS3(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "x", []byte("kept"), "text/plain"))

	second, err := NewS3(ctx, cfg)
	require.NoError(t, err)
	got, err := second.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), got)
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}
