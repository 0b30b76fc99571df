package playback

import "github.com/zmb3/spotify/v2"

// ArtistName returns the first credited artist, or "Unknown Artist".
func ArtistName(t *spotify.FullTrack) string {
	if t == nil || len(t.Artists) == 0 || t.Artists[0].Name == "" {
		return "Unknown Artist"
	}
	return t.Artists[0].Name
}

// LargestImage returns the first listed cover. The API lists covers
// largest first.
func LargestImage(t *spotify.FullTrack) string {
	if t == nil || len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

// SmallestImage returns the last listed cover.
func SmallestImage(t *spotify.FullTrack) string {
	if t == nil || len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[len(t.Album.Images)-1].URL
}
