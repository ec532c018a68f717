package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"locator-crawler/internal/config"
	"locator-crawler/internal/entity"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	return NewClient(Params{
		Config: &config.Config{
			APIConfig: &config.APIConfig{BaseURL: baseURL, Timeout: 2000},
		},
		Logger: zap.NewNop(),
	})
}

func TestClient_CreateScreen(t *testing.T) {
	var got screenPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/screens", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(screenResponse{ID: 7})
	}))
	defer srv.Close()

	id, err := testClient(t, srv.URL).CreateScreen(context.Background(), &entity.Screen{
		URL:       "https://a/p",
		Name:      "p",
		Title:     "Page",
		SessionID: "session_1",
	})

	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.Equal(t, "session_1", got.SessionID)
	assert.Equal(t, "https://a/p", got.URL)
}

func TestClient_SaveElement(t *testing.T) {
	t.Run("posts the full record", func(t *testing.T) {
		var got elementPayload

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/add-locator", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		err := testClient(t, srv.URL).SaveElement(context.Background(), &entity.ElementRecord{
			ScreenID:       7,
			Name:           "save_button",
			Type:           "button",
			Selector:       "[data-testid='save']",
			XPath:          "//*[@data-testid='save']",
			StabilityScore: 100,
			Verified:       true,
			Priority:       1,
			TestID:         "save",
		})

		require.NoError(t, err)
		assert.Equal(t, 7, got.ScreenID)
		assert.Equal(t, "save", got.TestID)
		assert.Equal(t, 100, got.StabilityScore)
	})

	t.Run("non-2xx surfaces as persistence error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := testClient(t, srv.URL).SaveElement(context.Background(), &entity.ElementRecord{Selector: "#x"})

		require.Error(t, err)
	})

	t.Run("unreachable api surfaces as persistence error", func(t *testing.T) {
		err := testClient(t, "http://127.0.0.1:1").Ping(context.Background())

		require.Error(t, err)
	})
}

type flakyStore struct {
	failAll   bool
	nextID    int
	screens   []*entity.Screen
	elements  []*entity.ElementRecord
	pingError error
}

func (s *flakyStore) Ping(ctx context.Context) error { return s.pingError }

func (s *flakyStore) CreateScreen(ctx context.Context, scr *entity.Screen) (int, error) {
	if s.failAll {
		return 0, errors.New("api down")
	}

	s.nextID++
	s.screens = append(s.screens, scr)

	return s.nextID, nil
}

func (s *flakyStore) SaveElement(ctx context.Context, rec *entity.ElementRecord) error {
	if s.failAll {
		return errors.New("api down")
	}

	s.elements = append(s.elements, rec)

	return nil
}

func newRecord(screenID int, selector string) *entity.ElementRecord {
	return &entity.ElementRecord{
		ScreenID:       screenID,
		Name:           "el",
		Type:           "button",
		Selector:       selector,
		XPath:          "//" + selector,
		StabilityScore: 70,
		Verified:       true,
	}
}

func TestFallback_BuffersWhenPrimaryFails(t *testing.T) {
	fb := NewFallback(&flakyStore{failAll: true}, zap.NewNop(), t.TempDir(), "session_1")

	id, err := fb.CreateScreen(context.Background(), &entity.Screen{
		URL: "https://a/p", Name: "p", SessionID: "session_1",
	})
	require.NoError(t, err, "fallback must absorb the failure")
	assert.Negative(t, id, "synthetic ids must never collide with service ids")

	for _, sel := range []string{"#a", "#b", "#c"} {
		require.NoError(t, fb.SaveElement(context.Background(), newRecord(id, sel)))
	}

	screens, elements := fb.Buffered()
	assert.Equal(t, 1, screens)
	assert.Equal(t, 3, elements)
}

func TestFallback_PassthroughWhenPrimaryHealthy(t *testing.T) {
	primary := &flakyStore{}
	fb := NewFallback(primary, zap.NewNop(), t.TempDir(), "session_1")

	id, err := fb.CreateScreen(context.Background(), &entity.Screen{URL: "https://a/p"})
	require.NoError(t, err)
	require.Positive(t, id)

	require.NoError(t, fb.SaveElement(context.Background(), newRecord(id, "#a")))

	screens, elements := fb.Buffered()
	assert.Zero(t, screens)
	assert.Zero(t, elements)
	assert.Len(t, primary.elements, 1)
}

func TestFallback_FlushAndReplay(t *testing.T) {
	dir := t.TempDir()
	fb := NewFallback(&flakyStore{failAll: true}, zap.NewNop(), dir, "session_9")

	id, _ := fb.CreateScreen(context.Background(), &entity.Screen{
		URL: "https://a/p", Name: "p", Title: "p", SessionID: "session_9",
	})

	for _, sel := range []string{"#a", "#b", "#c"} {
		require.NoError(t, fb.SaveElement(context.Background(), newRecord(id, sel)))
	}

	path, err := fb.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "session_9_fallback.json"), path)

	// Replaying against a healthy store recreates everything.
	target := &flakyStore{}
	screens, elements, err := Replay(context.Background(), target, zap.NewNop(), path)

	require.NoError(t, err)
	assert.Equal(t, 1, screens)
	assert.Equal(t, 3, elements)
	require.Len(t, target.elements, 3)
	assert.Equal(t, 1, target.elements[0].ScreenID, "replayed elements must use the new screen id")
}

func TestFallback_MidCrawlOutage(t *testing.T) {
	// Screen created while the API was still up, outage strikes before its
	// elements are saved. The replay file must carry the screen too, or the
	// buffered elements have nothing to attach to on import.
	primary := &flakyStore{}
	fb := NewFallback(primary, zap.NewNop(), t.TempDir(), "session_5")

	id, err := fb.CreateScreen(context.Background(), &entity.Screen{
		URL: "https://a/p", Name: "p", Title: "p", SessionID: "session_5",
	})
	require.NoError(t, err)
	require.Positive(t, id)

	primary.failAll = true

	require.NoError(t, fb.SaveElement(context.Background(), newRecord(id, "#a")))
	require.NoError(t, fb.SaveElement(context.Background(), newRecord(id, "#b")))

	screens, elements := fb.Buffered()
	assert.Equal(t, 1, screens)
	assert.Equal(t, 2, elements)

	path, err := fb.Flush(context.Background())
	require.NoError(t, err)

	target := &flakyStore{}
	replayedScreens, replayedElements, err := Replay(context.Background(), target, zap.NewNop(), path)

	require.NoError(t, err)
	assert.Equal(t, 1, replayedScreens)
	assert.Equal(t, 2, replayedElements)
	require.Len(t, target.elements, 2)
	assert.Equal(t, 1, target.elements[0].ScreenID)
}

func TestFallback_FlushEmptyBufferWritesNothing(t *testing.T) {
	fb := NewFallback(&flakyStore{}, zap.NewNop(), t.TempDir(), "session_1")

	path, err := fb.Flush(context.Background())

	require.NoError(t, err)
	assert.Empty(t, path)
}
