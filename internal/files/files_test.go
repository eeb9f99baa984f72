package files

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/caredesk/caredesk/internal/care"
)

func pngPayload(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestStageText(t *testing.T) {
	staged, err := Stage("notes.txt", []byte("hello"), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if staged.Kind != care.KindFile {
		t.Errorf("kind = %q, want file", staged.Kind)
	}
	if staged.Name != "notes.txt" {
		t.Errorf("name = %q", staged.Name)
	}
}

func TestStageRejectsOversized(t *testing.T) {
	_, err := Stage("big.bin", make([]byte, MaxSize+1), time.Now())
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestStageRecompressesImage(t *testing.T) {
	payload := pngPayload(t, 64, 64)
	staged, err := Stage("photo.png", payload, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if staged.Kind != care.KindImage {
		t.Errorf("kind = %q, want image", staged.Kind)
	}
	// Recompressed payload must be a JPEG, not the original PNG.
	if bytes.Equal(staged.Payload, payload) {
		t.Error("payload was not recompressed")
	}
	if !bytes.HasPrefix(staged.Payload, []byte{0xff, 0xd8}) {
		t.Error("payload is not a JPEG")
	}
}

func TestStageFallbackName(t *testing.T) {
	now := time.Date(2026, 3, 4, 15, 30, 45, 0, time.UTC)
	staged, err := Stage("", []byte("x"), now)
	if err != nil {
		t.Fatal(err)
	}
	if staged.Name != "file-2026-03-04T15-30-45" {
		t.Errorf("name = %q", staged.Name)
	}
	if strings.ContainsAny(staged.Name, ":.") {
		t.Errorf("name %q contains unsafe characters", staged.Name)
	}
}

func TestDetectKindFromMIME(t *testing.T) {
	tests := []struct {
		name string
		want care.MessageKind
	}{
		{"a.jpg", care.KindImage},
		{"a.png", care.KindImage},
		{"a.mp3", care.KindAudio},
		{"a.mp4", care.KindVideo},
		{"a.pdf", care.KindFile},
		{"noext", care.KindFile},
	}
	for _, tt := range tests {
		if got := care.DetectKind(MIMEType(tt.name)); got != tt.want {
			t.Errorf("DetectKind(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
