package download

import (
	"context"
	"strings"

	"albumgrab/internal/progress"
)

// Request carries everything needed to fetch one album. ReleaseID is the
// MusicBrainz release id; it is only threaded through to the tags.
type Request struct {
	AlbumID   int
	Title     string
	Artist    string
	ArtistID  int
	ReleaseID string
}

type Track struct {
	Title  string
	Number int
}

// Tags describe the metadata written into a fetched file.
type Tags struct {
	Artist      string
	Album       string
	Title       string
	TrackNumber int
	TotalTracks int
	ReleaseID   string
}

// FetchRequest asks the fetcher for one track. DestPath has no extension;
// the fetcher picks it from the audio format it produces.
type FetchRequest struct {
	Query    string
	DestPath string
	Tags     Tags
}

// TrackResult is the outcome of one track. A nil Err means the file was written.
type TrackResult struct {
	Track Track
	Err   error
}

func (r TrackResult) OK() bool { return r.Err == nil }

type Admission int

const (
	Rejected Admission = iota
	Accepted
	AlreadyRunning
)

func (a Admission) String() string {
	switch a {
	case Accepted:
		return "started"
	case AlreadyRunning:
		return "already_downloading"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Catalog is the part of the catalog manager the orchestrator needs.
type Catalog interface {
	Tracks(ctx context.Context, albumID int) ([]Track, error)
	RescanArtist(ctx context.Context, artistID int) error
}

// Fetcher retrieves one track to disk.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) error
}

type Options struct {
	DownloadDir string
	Catalog     Catalog
	Fetcher     Fetcher
	Store       *progress.Store
}

func usableTracks(tracks []Track) []Track {
	valid := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		valid = append(valid, t)
	}
	return valid
}
