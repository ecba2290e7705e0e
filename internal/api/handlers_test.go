package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"albumgrab/internal/catalog"
	"albumgrab/internal/download"
	"albumgrab/internal/progress"
)

type mockAlbumSource struct {
	mock.Mock
}

func (m *mockAlbumSource) MissingAlbums(ctx context.Context) ([]catalog.Album, error) {
	args := m.Called(ctx)
	albums, _ := args.Get(0).([]catalog.Album)
	return albums, args.Error(1)
}

func (m *mockAlbumSource) Cover(ctx context.Context, albumID int) (*catalog.Cover, error) {
	args := m.Called(ctx, albumID)
	cover, _ := args.Get(0).(*catalog.Cover)
	return cover, args.Error(1)
}

type stubCatalog struct {
	gate chan struct{}
}

func (s *stubCatalog) Tracks(ctx context.Context, albumID int) ([]download.Track, error) {
	if s.gate != nil {
		<-s.gate
	}
	return []download.Track{{Title: "One", Number: 1}, {Title: "Two", Number: 2}}, nil
}

func (s *stubCatalog) RescanArtist(ctx context.Context, artistID int) error { return nil }

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, req download.FetchRequest) error { return nil }

func setupRouter(t *testing.T, albums AlbumSource, cat download.Catalog) (*gin.Engine, *download.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	manager := download.NewManager(download.Options{
		DownloadDir: t.TempDir(),
		Catalog:     cat,
		Fetcher:     stubFetcher{},
	})
	NewAPI(manager, albums).RegisterRoutes(router)
	return router, manager
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, &mockAlbumSource{}, &stubCatalog{})
	w := get(router, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStatusOfUnknownAlbumIsIdle(t *testing.T) {
	router, _ := setupRouter(t, &mockAlbumSource{}, &stubCatalog{})

	for _, path := range []string{"/status/999", "/api/v1/downloads/999"} {
		w := get(router, path)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"state":"idle","current":0,"total":0,"percent":0}`, w.Body.String(), path)
	}
}

func TestStatusRejectsNonNumericID(t *testing.T) {
	router, _ := setupRouter(t, &mockAlbumSource{}, &stubCatalog{})
	w := get(router, "/status/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartDownloadAndDuplicate(t *testing.T) {
	gate := make(chan struct{})
	router, manager := setupRouter(t, &mockAlbumSource{}, &stubCatalog{gate: gate})
	body := `{"id":42,"title":"Moon","artist":"A/B*Band","artistId":7,"mbId":"mb-1"}`

	w := postJSON(router, "/start_download", body)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"status":"started"}`, w.Body.String())

	w = postJSON(router, "/api/v1/downloads", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"already_downloading"}`, w.Body.String())

	w = get(router, "/status/42")
	assert.JSONEq(t, `{"state":"preparing","current":0,"total":0,"percent":0}`, w.Body.String())

	close(gate)
	require.True(t, manager.WaitAll(context.Background()))

	var rec progress.Record
	w = get(router, "/api/v1/downloads/42")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, progress.Record{State: progress.StateCompleted, Current: 2, Total: 2, Percent: 100}, rec)

	w = get(router, "/api/v1/downloads")
	require.Equal(t, http.StatusOK, w.Code)
	var all map[string]progress.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, progress.StateCompleted, all["42"].State)
}

func TestStartDownloadValidation(t *testing.T) {
	router, _ := setupRouter(t, &mockAlbumSource{}, &stubCatalog{})

	cases := []string{
		`not json`,
		`{"title":"Moon","artist":"Band"}`,
		`{"id":-1,"title":"Moon","artist":"Band"}`,
		`{"id":1,"artist":"Band"}`,
	}
	for _, body := range cases {
		w := postJSON(router, "/api/v1/downloads", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestListAlbums(t *testing.T) {
	albums := &mockAlbumSource{}
	albums.On("MissingAlbums", mock.Anything).Return([]catalog.Album{
		{ID: 42, Title: "Moon", Artist: "A/B*Band", ArtistID: 7, ReleaseID: "mb-1", Year: "2019"},
	}, nil).Once()
	router, _ := setupRouter(t, albums, &stubCatalog{})

	w := get(router, "/api/v1/albums")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":42,"title":"Moon","artist":"A/B*Band","artistId":7,"mbId":"mb-1","year":"2019"}]`, w.Body.String())
	albums.AssertExpectations(t)
}

func TestListAlbumsCatalogDown(t *testing.T) {
	albums := &mockAlbumSource{}
	albums.On("MissingAlbums", mock.Anything).Return(nil, catalog.ErrUnavailable)
	router, _ := setupRouter(t, albums, &stubCatalog{})

	w := get(router, "/api/v1/albums")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAlbumCover(t *testing.T) {
	albums := &mockAlbumSource{}
	albums.On("Cover", mock.Anything, 42).Return(&catalog.Cover{
		Body:          io.NopCloser(strings.NewReader("jpeg-bytes")),
		ContentType:   "image/jpeg",
		ContentLength: int64(len("jpeg-bytes")),
	}, nil)
	albums.On("Cover", mock.Anything, 43).Return(nil, errors.New("not found"))
	router, _ := setupRouter(t, albums, &stubCatalog{})

	w := get(router, "/api/v1/albums/42/cover")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg-bytes", w.Body.String())

	w = get(router, "/api/v1/albums/43/cover")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = get(router, "/api/v1/albums/x/cover")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	albums.AssertExpectations(t)
}

func TestZerologLoggerPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ZerologLogger())
	router.GET("/slow", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		c.String(http.StatusTeapot, "short and stout")
	})

	w := get(router, "/slow?x=1")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.True(t, isQuiet("/status/1"))
	assert.False(t, isQuiet("/api/v1/downloads"))
}
