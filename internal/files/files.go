// Package files handles attachment staging: size validation, image
// recompression, and fallback naming.
package files

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register decoder
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/caredesk/caredesk/internal/care"
)

// MaxSize is the attachment size limit.
const MaxSize = 1 << 20 // 1 MiB

// jpegQuality is the recompression quality for staged images.
const jpegQuality = 70

// ErrTooLarge is surfaced inline by the composer when a staged file exceeds
// MaxSize. The send action is not attempted while it is pending.
var ErrTooLarge = errors.New("file exceeds 1 MB limit")

// Staged is a validated attachment ready to send.
type Staged struct {
	Name    string
	Payload []byte
	Kind    care.MessageKind
}

// Stage validates and prepares an attachment. Images are recompressed to
// JPEG before the size check so a large photo can still fit the limit. A
// missing name gets a timestamp-based fallback.
func Stage(name string, payload []byte, now time.Time) (*Staged, error) {
	kind := care.DetectKind(MIMEType(name))

	if kind == care.KindImage {
		compressed, err := CompressImage(payload)
		if err == nil {
			payload = compressed
		}
	}
	if len(payload) > MaxSize {
		return nil, ErrTooLarge
	}
	if name == "" {
		name = FallbackName(now)
		kind = care.KindFile
	}
	return &Staged{Name: name, Payload: payload, Kind: kind}, nil
}

// mediaTypes covers common media extensions the platform's mime table may
// not know about on a minimal system.
var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

// MIMEType guesses a file's MIME type from its extension.
func MIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return mediaTypes[ext]
}

// CompressImage re-encodes a PNG or JPEG payload as a smaller JPEG.
func CompressImage(payload []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// FallbackName builds a timestamp-based name for files that arrive without
// one. Colons and dots are replaced so the name stays filesystem-safe.
func FallbackName(now time.Time) string {
	stamp := now.Format("2006-01-02T15:04:05")
	stamp = strings.ReplaceAll(stamp, ":", "-")
	stamp = strings.ReplaceAll(stamp, ".", "-")
	return "file-" + stamp
}
