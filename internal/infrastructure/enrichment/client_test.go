package enrichment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *memCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = b
	m.mu.Unlock()
	return nil
}

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/27AAPFU0939F1ZV":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"legal_name":" ACME TRADERS ","address":"Mumbai","status":"Active"}`))
		case "/29AAGCB7383J1Z4":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("mantenimiento"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup_Found(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := NewClient(Config{BaseURL: srv.URL + "/"}, nil, logger.Nop())

	got, err := c.Lookup(context.Background(), "27AAPFU0939F1ZV")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ACME TRADERS", got.LegalName)
	assert.Equal(t, "Mumbai", got.Address)
	assert.Equal(t, "Active", got.JurisdictionStatus)
}

func TestLookup_NotFoundIsNil(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := NewClient(Config{BaseURL: srv.URL}, nil, logger.Nop())

	got, err := c.Lookup(context.Background(), "07AAACR5055K1Z9")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLookup_ServerErrorIsError(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	cache := newMemCache()
	c := NewClient(Config{BaseURL: srv.URL}, cache, logger.Nop())

	_, err := c.Lookup(context.Background(), "29AAGCB7383J1Z4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Empty(t, cache.data, "los errores no se cachean")
}

func TestLookup_UsesCache(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := NewClient(Config{BaseURL: srv.URL}, newMemCache(), logger.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.Lookup(ctx, "27AAPFU0939F1ZV")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "ACME TRADERS", got.LegalName)

		missing, err := c.Lookup(ctx, "07AAACR5055K1Z9")
		require.NoError(t, err)
		assert.Nil(t, missing)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestLookup_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil, logger.Nop())

	_, err := c.Lookup(context.Background(), "27AAPFU0939F1ZV")
	assert.Error(t, err)
}
