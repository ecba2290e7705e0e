package ui

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"albumgrab/internal/catalog"
	"albumgrab/internal/progress"
)

//go:embed templates/*
var templatesFS embed.FS

// PollInterval is how often the page asks for progress of running albums.
const PollInterval = 2000

type AlbumLister interface {
	MissingAlbums(ctx context.Context) ([]catalog.Album, error)
}

type StatusSource interface {
	Statuses() map[int]progress.Record
}

type UI struct {
	albums    AlbumLister
	statuses  StatusSource
	templates *template.Template
}

type albumView struct {
	catalog.Album
	Progress progress.Record
}

type artistGroup struct {
	Name   string
	Albums []albumView
}

func NewUI(albums AlbumLister, statuses StatusSource) *UI {
	tmpl := template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))
	return &UI{albums: albums, statuses: statuses, templates: tmpl}
}

func (u *UI) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(u.templates)
	router.GET("/", u.Home)
}

// Home renders the missing albums grouped by artist.
func (u *UI) Home(c *gin.Context) {
	albums, err := u.albums.MissingAlbums(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load missing albums for ui")
		c.HTML(http.StatusBadGateway, "index", gin.H{"Error": "Lidarr is not reachable: " + err.Error(), "PollInterval": PollInterval})
		return
	}
	c.HTML(http.StatusOK, "index", gin.H{
		"Groups":       groupByArtist(albums, u.statuses.Statuses()),
		"Count":        len(albums),
		"PollInterval": PollInterval,
	})
}

// groupByArtist expects albums already sorted by artist.
func groupByArtist(albums []catalog.Album, statuses map[int]progress.Record) []artistGroup {
	groups := make([]artistGroup, 0)
	for _, album := range albums {
		rec, ok := statuses[album.ID]
		if !ok {
			rec = progress.Idle()
		}
		view := albumView{Album: album, Progress: rec}
		if n := len(groups); n > 0 && groups[n-1].Name == album.Artist {
			groups[n-1].Albums = append(groups[n-1].Albums, view)
			continue
		}
		groups = append(groups, artistGroup{Name: album.Artist, Albums: []albumView{view}})
	}
	return groups
}
