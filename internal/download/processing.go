package download

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	fileutil "albumgrab/internal/file"
	"albumgrab/internal/progress"
)

const unknownArtistDir = "Unknown Artist"

// run is the unit of work of one accepted request. It is the only writer of
// the album's record until it reaches a terminal state.
func (m *Manager) run(ctx context.Context, runID string, req Request) {
	logger := log.With().Int("album_id", req.AlbumID).Str("run_id", runID).Logger()

	tracks, err := m.catalog.Tracks(ctx, req.AlbumID)
	if err != nil {
		m.fail(logger, req.AlbumID, "fetch track list", err)
		return
	}
	tracks = usableTracks(tracks)
	total := len(tracks)
	m.store.Set(req.AlbumID, progress.Downloading(0, total))
	logger.Info().Int("total", total).Msg("track list ready")

	albumDir, err := m.prepareAlbumDir(req)
	if err != nil {
		m.fail(logger, req.AlbumID, "prepare album folder", err)
		return
	}

	results := make([]TrackResult, 0, total)
	for i, track := range tracks {
		result := m.fetchTrack(ctx, req, albumDir, track, total)
		results = append(results, result)
		if !result.OK() {
			logger.Warn().Err(result.Err).Str("track", track.Title).Int("number", track.Number).Msg("track download failed, skipping")
		} else {
			logger.Debug().Str("track", track.Title).Int("number", track.Number).Msg("track downloaded")
		}
		m.store.Set(req.AlbumID, progress.Downloading(i+1, total))
	}

	m.requestRescan(ctx, logger, req.ArtistID)

	m.store.Set(req.AlbumID, m.store.Get(req.AlbumID).Completed())

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	logger.Info().Int("ok", len(results)-failed).Int("failed", failed).Str("dir", albumDir).Msg("album download completed")
}

func (m *Manager) requestRescan(ctx context.Context, logger zerolog.Logger, artistID int) {
	if artistID <= 0 {
		logger.Warn().Int("artist_id", artistID).Msg("no artist id, skipping rescan")
		return
	}
	if err := m.catalog.RescanArtist(ctx, artistID); err != nil {
		logger.Warn().Err(err).Int("artist_id", artistID).Msg("rescan request failed")
		return
	}
	logger.Info().Int("artist_id", artistID).Msg("rescan requested")
}

// prepareAlbumDir creates <root>/<artist>/<album>. Names that sanitize to
// nothing fall back to placeholders so the album still has a folder.
func (m *Manager) prepareAlbumDir(req Request) (string, error) {
	if m.downloadDir == "" {
		return "", ErrNoDownloadDir
	}
	dir := filepath.Join(m.downloadDir,
		fileutil.SanitizeOr(req.Artist, unknownArtistDir),
		fileutil.SanitizeOr(req.Title, fmt.Sprintf("album-%d", req.AlbumID)))
	if err := fileutil.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// fetchTrack turns a panicking fetcher into a failed track.
func (m *Manager) fetchTrack(ctx context.Context, req Request, albumDir string, track Track, total int) (res TrackResult) {
	res.Track = track
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%w: %v", ErrFetchPanicked, r)
		}
	}()

	fetchReq := FetchRequest{
		Query:    fmt.Sprintf("%s %s audio", req.Artist, track.Title),
		DestPath: trackPath(albumDir, track),
		Tags: Tags{
			Artist:      req.Artist,
			Album:       req.Title,
			Title:       track.Title,
			TrackNumber: track.Number,
			TotalTracks: total,
			ReleaseID:   req.ReleaseID,
		},
	}
	res.Err = m.fetcher.Fetch(ctx, fetchReq)
	return res
}

// trackPath names files "NN - Title" inside the album folder, without extension.
func trackPath(albumDir string, track Track) string {
	name := fileutil.SanitizeOr(track.Title, "Track")
	return filepath.Join(albumDir, fmt.Sprintf("%02d - %s", track.Number, name))
}

// fail moves the record to error, keeping the last published counters.
func (m *Manager) fail(logger zerolog.Logger, albumID int, stage string, err error) {
	m.store.Set(albumID, m.store.Get(albumID).Failed())
	logger.Error().Err(err).Str("stage", stage).Msg("album download failed")
}
