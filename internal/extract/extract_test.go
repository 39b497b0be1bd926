package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImages struct {
	text     string
	err      error
	mimeType string
}

func (f *fakeImages) ExtractImageText(_ context.Context, mimeType string, _ []byte) (string, error) {
	f.mimeType = mimeType
	return f.text, f.err
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"invisible characters and blank runs", "  a\r\n\n\n b\u200b\t c\x00 ", "a\n\nb c"},
		{"only invisible", "\ufeff \n", ""},
		{"paragraph break kept", "First paragraph.\n\nSecond  paragraph.", "First paragraph.\n\nSecond paragraph."},
		{"single line break kept", "line one \t\n\t line two", "line one\nline two"},
		{"many breaks squeezed", "a\n \n\n\t\n\nb", "a\n\nb"},
		{"carriage returns", "a\r\rb", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectMIME("x.pdf", "", nil))
	assert.Equal(t, "image/png", DetectMIME("x.bin", "image/png; charset=binary", nil))
	assert.Equal(t, "image/jpeg", DetectMIME("photo.JPG", "application/octet-stream", nil))
	assert.Equal(t, "image/png", DetectMIME("noext", "", []byte("\x89PNG\r\n\x1a\n0000")))
}

func TestFromFileImage(t *testing.T) {
	images := &fakeImages{text: "  Mitochondria\n\nproduce ATP. "}
	e := New(images, nil, nil)

	text, err := e.FromFile(context.Background(), "slide.png", "", []byte("png bytes"))

	require.NoError(t, err)
	assert.Equal(t, "Mitochondria\n\nproduce ATP.", text)
	assert.Equal(t, "image/png", images.mimeType)
}

func TestFromFileFailures(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		e        *Extractor
		filename string
		mimeType string
		data     []byte
	}{
		{"empty upload", New(nil, nil, nil), "a.pdf", "", nil},
		{"unsupported type", New(nil, nil, nil), "a.txt", "text/plain", []byte("hello")},
		{"image without reader", New(nil, nil, nil), "a.png", "", []byte("x")},
		{"image reader error", New(&fakeImages{err: errors.New("quota")}, nil, nil), "a.png", "", []byte("x")},
		{"blank image text", New(&fakeImages{text: " \n "}, nil, nil), "a.png", "", []byte("x")},
		{"not a pdf", New(nil, nil, nil), "a.pdf", "", []byte("definitely not a pdf")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.e.FromFile(ctx, tc.filename, tc.mimeType, tc.data)
			assert.ErrorIs(t, err, ErrExtractionFailed)
		})
	}
}

func TestVideoID(t *testing.T) {
	for _, in := range []string{
		"dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ",
	} {
		id, err := VideoID(in)
		require.NoError(t, err, in)
		assert.Equal(t, "dQw4w9WgXcQ", id, in)
	}
	_, err := VideoID("https://example.com/video")
	assert.Error(t, err)
}

func TestTranscriptFromWatchPage(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("v"))
		fmt.Fprintf(w, `<html><script>var x = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"%s/timedtext?lang=en","languageCode":"en"}]}},"videoDetails":{}}</script></html>`, srv.URL)
	})
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><transcript><text start="0" dur="1.5">Hello &amp;amp; welcome</text><text start="1.5" dur="2">it&amp;#39;s   Go</text></transcript>`)
	})

	yt := NewYouTube(srv.Client())
	yt.watchURL = srv.URL + "/watch?v=%s"
	e := New(nil, yt, nil)

	text, err := e.FromVideo(context.Background(), "https://youtu.be/dQw4w9WgXcQ")

	require.NoError(t, err)
	assert.Equal(t, "Hello & welcome it's Go", text)
}

func TestTranscriptWithoutCaptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>no captions here</html>")
	}))
	defer srv.Close()

	yt := NewYouTube(srv.Client())
	yt.watchURL = srv.URL + "/watch?v=%s"

	_, err := New(nil, yt, nil).FromVideo(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.ErrorContains(t, err, "no captions available")
}
