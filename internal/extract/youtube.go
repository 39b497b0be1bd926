package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
)

var (
	videoIDPattern    = regexp.MustCompile(`(?:youtube\.com\/(?:[^\/]+\/.+\/|(?:v|e(?:mbed)?|shorts)\/|.*[?&]v=)|youtu\.be\/)([^"&?\/\s]{11})`)
	bareVideoID       = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	transcriptPattern = regexp.MustCompile(`<text start="([^"]*)" dur="([^"]*)"[^>]*>([^<]*)</text>`)
)

// YouTube reads caption tracks from the public watch page.
type YouTube struct {
	client *http.Client
	// watchURL is formatted with the video id.
	watchURL string
}

func NewYouTube(client *http.Client) *YouTube {
	if client == nil {
		client = http.DefaultClient
	}
	return &YouTube{client: client, watchURL: "https://www.youtube.com/watch?v=%s"}
}

// VideoID accepts a full YouTube URL or a bare 11 character id.
func VideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if bareVideoID.MatchString(input) {
		return input, nil
	}
	if m := videoIDPattern.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("invalid YouTube URL or video ID")
}

// Transcript returns the caption text of a video. lang selects a caption
// track by language code; empty picks the first track.
func (yt *YouTube) Transcript(ctx context.Context, videoURL, lang string) (string, error) {
	videoID, err := VideoID(videoURL)
	if err != nil {
		return "", err
	}

	page, err := yt.get(ctx, fmt.Sprintf(yt.watchURL, videoID))
	if err != nil {
		return "", fmt.Errorf("failed to fetch video page: %w", err)
	}

	trackURL, err := captionTrack(page, videoID, lang)
	if err != nil {
		return "", err
	}

	body, err := yt.get(ctx, trackURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch transcript: %w", err)
	}

	var text strings.Builder
	for _, m := range transcriptPattern.FindAllStringSubmatch(body, -1) {
		// Captions are escaped twice (&amp;#39; for an apostrophe).
		text.WriteString(html.UnescapeString(html.UnescapeString(m[3])))
		text.WriteString(" ")
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("transcript for video %s is empty", videoID)
	}
	return text.String(), nil
}

func captionTrack(page, videoID, lang string) (string, error) {
	parts := strings.SplitN(page, `"captions":`, 2)
	if len(parts) < 2 {
		return "", fmt.Errorf("no captions available for video %s", videoID)
	}
	end := strings.Index(parts[1], `,"videoDetails`)
	if end < 0 {
		return "", fmt.Errorf("unexpected caption data for video %s", videoID)
	}

	var captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []struct {
				BaseURL      string `json:"baseUrl"`
				LanguageCode string `json:"languageCode"`
			} `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	}
	if err := json.Unmarshal([]byte(parts[1][:end]), &captions); err != nil {
		return "", fmt.Errorf("failed to parse captions data: %w", err)
	}

	tracks := captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return "", fmt.Errorf("no transcripts available for video %s", videoID)
	}
	if lang == "" {
		return tracks[0].BaseURL, nil
	}
	for _, track := range tracks {
		if track.LanguageCode == lang {
			return track.BaseURL, nil
		}
	}
	return "", fmt.Errorf("no transcript available in language %s", lang)
}

func (yt *YouTube) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := yt.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}
