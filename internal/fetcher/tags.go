package fetcher

import (
	"fmt"
	"strconv"

	"github.com/bogem/id3v2/v2"

	"albumgrab/internal/download"
)

// Description Picard and Lidarr use for the release id TXXX frame.
const releaseIDDescription = "MusicBrainz Album Id"

// writeTags overwrites the catalog-provided frames of an MP3 file. Frames
// yt-dlp embedded that are not listed here are left alone.
func writeTags(path string, tags download.Tags) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	tag.SetArtist(tags.Artist)
	tag.SetAlbum(tags.Album)
	tag.SetTitle(tags.Title)
	tag.AddTextFrame(tag.CommonID("Band/Orchestra/Accompaniment"), id3v2.EncodingUTF8, tags.Artist)

	if tags.TrackNumber > 0 {
		trackStr := strconv.Itoa(tags.TrackNumber)
		if tags.TotalTracks > 0 {
			trackStr += "/" + strconv.Itoa(tags.TotalTracks)
		}
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, trackStr)
	}

	if tags.ReleaseID != "" {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: releaseIDDescription,
			Value:       tags.ReleaseID,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}
	return nil
}
