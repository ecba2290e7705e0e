// Package catalog talks to the Lidarr v1 API: wanted albums, track lists,
// rescan commands and album covers.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"albumgrab/internal/download"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 200
	rescanCommand   = "RescanArtist"
)

// ErrUnavailable wraps every network or API failure.
var ErrUnavailable = errors.New("catalog unavailable")

// Client provides access to the Lidarr API.
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient *http.Client
}

// NewClient creates a Lidarr API client. Non-positive pageSize or timeout
// fall back to defaults.
func NewClient(baseURL, apiKey string, pageSize int, timeout time.Duration) *Client {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// MissingAlbums returns the wanted/missing albums sorted by artist. Within an
// artist, Lidarr's newest-release-first order is kept.
func (c *Client) MissingAlbums(ctx context.Context) ([]Album, error) {
	params := url.Values{}
	params.Set("sortKey", "releaseDate")
	params.Set("sortDir", "desc")
	params.Set("pageSize", strconv.Itoa(c.pageSize))

	var resp wantedResponse
	if err := c.getJSON(ctx, "/api/v1/wanted/missing", params, &resp); err != nil {
		return nil, err
	}

	albums := make([]Album, 0, len(resp.Records))
	for _, rec := range resp.Records {
		albums = append(albums, Album{
			ID:        rec.ID,
			Title:     rec.Title,
			Artist:    rec.Artist.ArtistName,
			ArtistID:  rec.ArtistID,
			ReleaseID: rec.ForeignReleaseID,
			Year:      releaseYear(rec.ReleaseDate),
		})
	}
	sort.SliceStable(albums, func(i, j int) bool { return albums[i].Artist < albums[j].Artist })
	return albums, nil
}

// Tracks returns the album's tracks in the order Lidarr lists them.
func (c *Client) Tracks(ctx context.Context, albumID int) ([]download.Track, error) {
	params := url.Values{}
	params.Set("albumId", strconv.Itoa(albumID))

	var records []trackRecord
	if err := c.getJSON(ctx, "/api/v1/track", params, &records); err != nil {
		return nil, err
	}

	tracks := make([]download.Track, 0, len(records))
	for _, rec := range records {
		tracks = append(tracks, download.Track{Title: rec.Title, Number: rec.number()})
	}
	return tracks, nil
}

// RescanArtist queues a RescanArtist command so Lidarr imports new files.
func (c *Client) RescanArtist(ctx context.Context, artistID int) error {
	body, err := json.Marshal(commandRequest{Name: rescanCommand, ArtistID: artistID})
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/command", nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Cover streams the album cover image Lidarr has cached.
func (c *Client) Cover(ctx context.Context, albumID int) (*Cover, error) {
	path := fmt.Sprintf("/api/v1/mediacover/album/%d/cover.jpg", albumID)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return &Cover{Body: resp.Body, ContentType: contentType, ContentLength: resp.ContentLength}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrUnavailable, path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values, body io.Reader) (*http.Request, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	return req, nil
}

// do executes the request and turns transport errors and non-2xx answers
// into ErrUnavailable. On success the caller owns resp.Body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s returned status %d", ErrUnavailable, req.Method, req.URL.Path, resp.StatusCode)
	}
	return resp, nil
}

// setHeaders sets common headers for API requests.
func (c *Client) setHeaders(req *http.Request) {
	if req.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
}

// number prefers the medium-local track number and falls back to the
// absolute position when it is not numeric (vinyl sides like "A1").
func (t trackRecord) number() int {
	if n, err := strconv.Atoi(strings.TrimSpace(t.TrackNumber)); err == nil {
		return n
	}
	return t.AbsoluteTrackNumber
}

func releaseYear(date string) string {
	if len(date) < 4 {
		return date
	}
	return date[:4]
}

var _ download.Catalog = (*Client)(nil)
