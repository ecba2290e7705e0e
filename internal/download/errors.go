package download

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid download request")
	ErrNoDownloadDir  = errors.New("download dir not configured")
	ErrFetchPanicked  = errors.New("fetch panicked")
	ErrRunPanicked    = errors.New("album run panicked")
)
