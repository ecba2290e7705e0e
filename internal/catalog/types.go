package catalog

import "io"

// Album is a missing album as shown to the operator.
type Album struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	ArtistID  int    `json:"artistId"`
	ReleaseID string `json:"mbId"`
	Year      string `json:"year"`
}

// Cover is a streamed album cover; the caller closes Body.
type Cover struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

type wantedResponse struct {
	Page         int           `json:"page"`
	PageSize     int           `json:"pageSize"`
	TotalRecords int           `json:"totalRecords"`
	Records      []albumRecord `json:"records"`
}

type albumRecord struct {
	ID               int          `json:"id"`
	Title            string       `json:"title"`
	ArtistID         int          `json:"artistId"`
	Artist           artistRecord `json:"artist"`
	ForeignReleaseID string       `json:"foreignReleaseId"`
	ReleaseDate      string       `json:"releaseDate"`
}

type artistRecord struct {
	ID         int    `json:"id"`
	ArtistName string `json:"artistName"`
}

type trackRecord struct {
	ID                  int    `json:"id"`
	Title               string `json:"title"`
	AlbumID             int    `json:"albumId"`
	TrackNumber         string `json:"trackNumber"`
	AbsoluteTrackNumber int    `json:"absoluteTrackNumber"`
}

type commandRequest struct {
	Name     string `json:"name"`
	ArtistID int    `json:"artistId"`
}
