package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryStore struct {
	mu     sync.Mutex
	values map[string]json.RawMessage
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]json.RawMessage{}}
}

func (m *memoryStore) Load(_ context.Context, key string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.values[key], nil
}

func (m *memoryStore) Save(_ context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func serve(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestHandler_LoadSave(t *testing.T) {
	store := newMemoryStore()
	h := NewHandler(store, zap.NewNop())

	rec := serve(h, http.MethodGet, "/api/profile/user.settings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", rec.Body.String())

	rec = serve(h, http.MethodPut, "/api/profile/user.settings", `{ "name": "Ada", "goal": 120 }`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, `{"name":"Ada","goal":120}`, string(store.values["user.settings"]))

	rec = serve(h, http.MethodGet, "/api/profile/user.settings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"Ada","goal":120}`, rec.Body.String())
}

func TestHandler_Rejects(t *testing.T) {
	h := NewHandler(newMemoryStore(), zap.NewNop())

	rec := serve(h, http.MethodPut, "/api/profile/history", `{"broken":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodPut, "/api/profile/bad%20key", `1`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid profile key"}`, rec.Body.String())

	rec = serve(h, http.MethodPut, "/api/profile/big", `"`+strings.Repeat("x", maxValueBytes)+`"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_StoreUnavailable(t *testing.T) {
	rec := serve(NewHandler(nil, zap.NewNop()), http.MethodGet, "/api/profile/history", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	store := newMemoryStore()
	store.err = errors.New("connection refused")
	rec = serve(NewHandler(store, zap.NewNop()), http.MethodGet, "/api/profile/history", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore("invalid://url", "twinenergy:")
	assert.Error(t, err)
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	store, err := NewRedisStore("redis://localhost:6379/15", "twinenergy:test:")
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer store.Close()

	ctx := context.Background()
	defer store.Delete(ctx, "settings")

	value, err := store.Load(ctx, "settings")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, store.Save(ctx, "settings", json.RawMessage(`{"a":1}`)))
	value, err = store.Load(ctx, "settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(value))
}
