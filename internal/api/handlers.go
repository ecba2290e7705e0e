package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"albumgrab/internal/catalog"
	"albumgrab/internal/download"
)

// AlbumSource lists missing albums and serves their covers.
type AlbumSource interface {
	MissingAlbums(ctx context.Context) ([]catalog.Album, error)
	Cover(ctx context.Context, albumID int) (*catalog.Cover, error)
}

type startDownloadRequest struct {
	ID       int    `json:"id" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Artist   string `json:"artist" binding:"required"`
	ArtistID int    `json:"artistId"`
	MBID     string `json:"mbId"`
}

type startDownloadResponse struct {
	Status string `json:"status"`
}

type API struct {
	downloads *download.Manager
	albums    AlbumSource
}

func NewAPI(downloads *download.Manager, albums AlbumSource) *API {
	return &API{downloads: downloads, albums: albums}
}

// RegisterRoutes registers API routes on the provided gin engine
func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", a.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/albums", a.ListAlbums)
		api.GET("/albums/:id/cover", a.AlbumCover)
		api.POST("/downloads", a.StartDownload)
		api.GET("/downloads", a.ListDownloads)
		api.GET("/downloads/:id", a.DownloadStatus)
	}

	// Legacy routes kept for older front ends.
	router.POST("/start_download", a.StartDownload)
	router.GET("/status/:id", a.DownloadStatus)
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StartDownload admits an album download; duplicates of a running album are
// answered with already_downloading rather than an error.
func (a *API) StartDownload(c *gin.Context) {
	var req startDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("invalid start download request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	admission, err := a.downloads.Start(download.Request{
		AlbumID:   req.ID,
		Title:     req.Title,
		Artist:    req.Artist,
		ArtistID:  req.ArtistID,
		ReleaseID: req.MBID,
	})
	if err != nil {
		if errors.Is(err, download.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Int("album_id", req.ID).Err(err).Msg("failed to start download")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start download"})
		return
	}
	code := http.StatusAccepted
	if admission == download.AlreadyRunning {
		code = http.StatusOK
	}
	c.JSON(code, startDownloadResponse{Status: admission.String()})
}

// DownloadStatus returns the progress record; unknown albums report idle.
func (a *API) DownloadStatus(c *gin.Context) {
	albumID, ok := albumIDParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a.downloads.Status(albumID))
}

// ListDownloads returns every album started since the process booted.
func (a *API) ListDownloads(c *gin.Context) {
	c.JSON(http.StatusOK, a.downloads.Statuses())
}

func (a *API) ListAlbums(c *gin.Context) {
	albums, err := a.albums.MissingAlbums(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list missing albums")
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog unavailable"})
		return
	}
	c.JSON(http.StatusOK, albums)
}

// AlbumCover proxies the cover so the browser never needs the API key.
func (a *API) AlbumCover(c *gin.Context) {
	albumID, ok := albumIDParam(c)
	if !ok {
		return
	}
	cover, err := a.albums.Cover(c.Request.Context(), albumID)
	if err != nil {
		log.Debug().Int("album_id", albumID).Err(err).Msg("cover not available")
		c.JSON(http.StatusBadGateway, gin.H{"error": "cover unavailable"})
		return
	}
	defer cover.Body.Close()
	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, cover.ContentLength, cover.ContentType, cover.Body, nil)
}

func albumIDParam(c *gin.Context) (int, bool) {
	albumID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid album id"})
		return 0, false
	}
	return albumID, true
}
