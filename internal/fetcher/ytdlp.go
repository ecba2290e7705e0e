// Package fetcher retrieves single tracks with yt-dlp and tags the result so
// Lidarr can match it back to the right MusicBrainz release.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"albumgrab/internal/download"
)

const (
	searchPrefix      = "ytsearch1:"
	formatSelector    = "bestaudio/best"
	acceptLanguage    = "en-us,en;q=0.5"
	maxOutputInErrors = 400
)

var (
	ErrInvalidFetch = errors.New("invalid fetch request")
	ErrFetchFailed  = errors.New("yt-dlp failed")
	ErrNoOutput     = errors.New("yt-dlp produced no output file")
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

type Options struct {
	Binary       string
	AudioFormat  string
	AudioQuality string
	UserAgent    string
	Run          Runner
}

// YTDLP searches for a track and extracts its best audio stream.
type YTDLP struct {
	binary    string
	format    string
	quality   string
	userAgent string
	run       Runner
}

func New(opts Options) *YTDLP {
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = "mp3"
	}
	if opts.AudioQuality == "" {
		opts.AudioQuality = "192K"
	}
	if opts.Run == nil {
		opts.Run = execRunner
	}
	return &YTDLP{
		binary:    opts.Binary,
		format:    opts.AudioFormat,
		quality:   opts.AudioQuality,
		userAgent: opts.UserAgent,
		run:       opts.Run,
	}
}

// Fetch downloads the first search hit for req.Query to req.DestPath plus the
// audio format extension, then writes the tags.
func (y *YTDLP) Fetch(ctx context.Context, req download.FetchRequest) error {
	if strings.TrimSpace(req.Query) == "" || req.DestPath == "" {
		return ErrInvalidFetch
	}
	args := y.args(req)
	if out, err := y.run(ctx, y.binary, args...); err != nil {
		return &runError{args: args, output: truncate(string(out)), wrapped: err}
	}

	outPath := req.DestPath + "." + y.format
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("%w: %s", ErrNoOutput, outPath)
	}
	if y.format != "mp3" {
		return nil
	}
	if err := writeTags(outPath, req.Tags); err != nil {
		return fmt.Errorf("tag %s: %w", outPath, err)
	}
	return nil
}

func (y *YTDLP) args(req download.FetchRequest) []string {
	args := []string{
		"--quiet",
		"--no-warnings",
		"--no-check-certificates",
		"--no-playlist",
		"-f", formatSelector,
		"-x",
		"--audio-format", y.format,
		"--audio-quality", y.quality,
		"--embed-metadata",
		"--add-header", "Accept-Language:" + acceptLanguage,
	}
	if y.userAgent != "" {
		args = append(args, "--add-header", "User-Agent:"+y.userAgent)
	}
	if req.Tags.ReleaseID != "" {
		args = append(args, "--postprocessor-args",
			fmt.Sprintf("ffmpeg:-metadata %q", "MusicBrainz Album Id="+req.Tags.ReleaseID))
	}
	// yt-dlp expands % sequences in the output template.
	template := strings.ReplaceAll(req.DestPath, "%", "%%") + ".%(ext)s"
	args = append(args, "-o", template, searchPrefix+req.Query)
	return args
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec // binary comes from config
}

// runError keeps the yt-dlp command line and output next to the exit error.
type runError struct {
	args    []string
	output  string
	wrapped error
}

func (e *runError) Error() string {
	return fmt.Sprintf("%s: %v\nArgs: %s\nOutput: %s", ErrFetchFailed, e.wrapped, strings.Join(e.args, " "), e.output)
}

func (e *runError) Unwrap() []error {
	return []error{ErrFetchFailed, e.wrapped}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxOutputInErrors {
		return s[:maxOutputInErrors] + "..."
	}
	return s
}

var _ download.Fetcher = (*YTDLP)(nil)
