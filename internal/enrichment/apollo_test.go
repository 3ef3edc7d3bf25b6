package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	store map[string]string
	gets  int
	sets  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string]string)}
}

func (f *fakeCache) GetEnrichment(_ context.Context, email string) (string, error) {
	f.gets++
	return f.store[email], nil
}

func (f *fakeCache) SetEnrichment(_ context.Context, email string, payloadJSON string) error {
	f.sets++
	f.store[email] = payloadJSON
	return nil
}

func TestEnrichDisabledWithoutKey(t *testing.T) {
	c := NewApolloClient("", "", time.Second, 0, nil)
	contact, err := c.Enrich(context.Background(), "someone@example.com")
	require.NoError(t, err)
	assert.Nil(t, contact)
}

func TestEnrichMatchAndCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/people/match", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"person":{"email":"referrer@example.com","name":"Pat Doe","title":"Branch Manager","city":"Dallas","state":"TX","organization":{"name":"Example Wealth"}}}`))
	}))
	defer srv.Close()

	cache := newFakeCache()
	c := NewApolloClient(srv.URL, "test-key", time.Second, 0, cache)

	contact, err := c.Enrich(context.Background(), "Referrer@Example.com")
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "Pat Doe", contact.FullName)
	assert.Equal(t, "Example Wealth", contact.OrganizationName)
	assert.Equal(t, "referrer@example.com", contact.Email)
	assert.Equal(t, 1, cache.sets)

	// Second lookup is served from cache.
	contact2, err := c.Enrich(context.Background(), "referrer@example.com")
	require.NoError(t, err)
	require.NotNil(t, contact2)
	assert.Equal(t, "Pat Doe", contact2.FullName)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEnrichNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewApolloClient(srv.URL, "test-key", time.Second, 0, nil)
	contact, err := c.Enrich(context.Background(), "unknown@example.com")
	require.NoError(t, err)
	assert.Nil(t, contact)
}

func TestEnrichRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"person":{"email":"a@b.com","name":"A B"}}`))
	}))
	defer srv.Close()

	c := NewApolloClient(srv.URL, "test-key", time.Second, 2, nil)
	contact, err := c.Enrich(context.Background(), "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEnrichClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewApolloClient(srv.URL, "test-key", time.Second, 3, nil)
	_, err := c.Enrich(context.Background(), "bad@example.com")
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
