package download

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"albumgrab/internal/progress"
)

// Manager admits album downloads and runs each one in its own goroutine,
// publishing progress to the store after every track.
type Manager struct {
	mu          sync.RWMutex
	store       *progress.Store
	catalog     Catalog
	fetcher     Fetcher
	downloadDir string
	workersWG   sync.WaitGroup
	baseCtx     context.Context
	newRunID    func() string
}

func NewManager(opts Options) *Manager {
	store := opts.Store
	if store == nil {
		store = progress.NewStore()
	}
	return &Manager{
		store:       store,
		catalog:     opts.Catalog,
		fetcher:     opts.Fetcher,
		downloadDir: opts.DownloadDir,
		baseCtx:     context.Background(),
		newRunID:    uuid.NewString,
	}
}

// Start admits a download for the album. The check for an in-flight run and
// the switch to preparing happen in one atomic step; the rest of the work
// runs after Start has returned.
func (m *Manager) Start(req Request) (Admission, error) {
	if req.AlbumID <= 0 {
		return Rejected, fmt.Errorf("%w: album id %d", ErrInvalidRequest, req.AlbumID)
	}
	if !m.store.Begin(req.AlbumID) {
		log.Info().Int("album_id", req.AlbumID).Msg("download already running")
		return AlreadyRunning, nil
	}

	runID := m.newRunID()
	log.Info().
		Int("album_id", req.AlbumID).
		Str("run_id", runID).
		Str("artist", req.Artist).
		Str("album", req.Title).
		Bool("has_release_id", req.ReleaseID != "").
		Msg("album download accepted")

	ctx := m.baseContext()
	m.workersWG.Add(1)
	go func() {
		defer m.workersWG.Done()
		defer m.recoverRun(runID, req.AlbumID)
		m.run(ctx, runID, req)
	}()
	return Accepted, nil
}

// recoverRun moves the album to error if its unit of work panicked, so the
// record never stays active and the process keeps serving.
func (m *Manager) recoverRun(runID string, albumID int) {
	r := recover()
	if r == nil {
		return
	}
	m.store.Set(albumID, m.store.Get(albumID).Failed())
	log.Error().
		Int("album_id", albumID).
		Str("run_id", runID).
		Err(fmt.Errorf("%w: %v", ErrRunPanicked, r)).
		Msg("album download failed")
}

// Status returns the progress snapshot of an album; unknown albums are idle.
func (m *Manager) Status(albumID int) progress.Record {
	return m.store.Get(albumID)
}

// Statuses returns the snapshot of every album started since boot.
func (m *Manager) Statuses() map[int]progress.Record {
	return m.store.Snapshot()
}

// SetBaseContext sets the context handed to collaborators of new runs.
// Intended to be set at process startup and cancelled during shutdown.
func (m *Manager) SetBaseContext(ctx context.Context) {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()
}

// WaitAll blocks until all in-flight album workers finish or the context is done.
// Returns true if all workers finished, false if timed out.
func (m *Manager) WaitAll(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		m.workersWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) baseContext() context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.baseCtx == nil {
		return context.Background()
	}
	return m.baseCtx
}
