// Package extract turns uploaded source material (PDF documents, images and
// YouTube videos) into plain text for quiz generation.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ErrExtractionFailed means no usable text could be read from a source.
var ErrExtractionFailed = errors.New("text extraction failed")

// MaxUploadSize bounds uploaded files.
const MaxUploadSize = 20 << 20

// ImageReader reads the text shown in an image. *llm.GeminiCompleter
// implements it.
type ImageReader interface {
	ExtractImageText(ctx context.Context, mimeType string, data []byte) (string, error)
}

// Extractor dispatches a source to the right reader.
type Extractor struct {
	images  ImageReader
	youtube *YouTube
	log     *zap.Logger
}

// New builds an Extractor. images may be nil, in which case image uploads
// are rejected.
func New(images ImageReader, youtube *YouTube, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	if youtube == nil {
		youtube = NewYouTube(http.DefaultClient)
	}
	return &Extractor{images: images, youtube: youtube, log: log}
}

// DetectMIME decides the type of an upload from its declared content type,
// falling back to the file extension and then to sniffing the bytes.
func DetectMIME(filename, declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		if i := strings.Index(declared, ";"); i >= 0 {
			declared = declared[:i]
		}
		return strings.TrimSpace(strings.ToLower(declared))
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	}
	return http.DetectContentType(data)
}

// FromFile extracts the text of an uploaded PDF or image.
func (e *Extractor) FromFile(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrExtractionFailed, filename)
	}
	if len(data) > MaxUploadSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrExtractionFailed, filename, MaxUploadSize)
	}

	mimeType = DetectMIME(filename, mimeType, data)
	var (
		text string
		err  error
	)
	switch {
	case mimeType == "application/pdf":
		text, err = PDFText(data)
	case strings.HasPrefix(mimeType, "image/"):
		if e.images == nil {
			return "", fmt.Errorf("%w: image text extraction is not configured", ErrExtractionFailed)
		}
		text, err = e.images.ExtractImageText(ctx, mimeType, data)
	default:
		return "", fmt.Errorf("%w: unsupported file type %s", ErrExtractionFailed, mimeType)
	}
	if err != nil {
		e.log.Warn("extraction failed", zap.String("file", filename), zap.String("mime", mimeType), zap.Error(err))
		if errors.Is(err, ErrExtractionFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return checked(CleanText(text), filename)
}

// FromVideo extracts the transcript of a YouTube video.
func (e *Extractor) FromVideo(ctx context.Context, videoURL string) (string, error) {
	text, err := e.youtube.Transcript(ctx, videoURL, "")
	if err != nil {
		e.log.Warn("transcript fetch failed", zap.String("url", videoURL), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return checked(CleanText(text), videoURL)
}

func checked(text, source string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("%w: no readable text found in %s", ErrExtractionFailed, source)
	}
	return text, nil
}

var (
	zeroWidth  = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x00]`)
	blanks     = regexp.MustCompile(`[^\S\n]+`)
	lineEdges  = regexp.MustCompile(` ?\n ?`)
	manyBreaks = regexp.MustCompile(`\n{3,}`)
)

// CleanText removes invisible characters, collapses runs of spaces and tabs
// and squeezes three or more line breaks into one blank line. Paragraph
// breaks survive so the chunker can split on them.
func CleanText(s string) string {
	s = zeroWidth.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blanks.ReplaceAllString(s, " ")
	s = lineEdges.ReplaceAllString(s, "\n")
	s = manyBreaks.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
