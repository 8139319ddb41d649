package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
	"github.com/openannounce/announce-backend/pkg/logger"
)

type fakeRemote struct {
	webp     bool
	calls    int
	fail     bool
	lastMime string
	output   []byte
}

func (f *fakeRemote) Convert(_ context.Context, blob []byte, sourceMIME, targetMIME string, _ float64) ([]byte, error) {
	f.calls++
	f.lastMime = targetMIME
	if f.fail {
		return nil, fmt.Errorf("remote convert down")
	}
	if f.output != nil {
		return f.output, nil
	}
	return blob, nil
}

func (f *fakeRemote) SupportsWebP(context.Context) bool {
	return f.webp
}

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
}

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return cfg.Width, cfg.Height
}

func newTestConverter(t *testing.T, remote *fakeRemote) *Converter {
	t.Helper()

	conv, err := NewConverter(remote, discardLogger())
	if err != nil {
		t.Fatalf("new converter: %v", err)
	}
	return conv
}

func TestConvertImageBoundsLongerSide(t *testing.T) {
	t.Parallel()

	conv := newTestConverter(t, &fakeRemote{})
	profile := ProfileFor(enums.DeviceClassMobile, enums.NetworkTierFast)

	file := MediaFile{Name: "wide.jpg", MimeType: "image/jpeg", Data: encodeTestJPEG(t, 2400, 1200)}
	out, err := conv.Convert(context.Background(), file, enums.FileClassImage, profile)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	if out.Width != profile.MaxDimension {
		t.Errorf("width = %d, want %d", out.Width, profile.MaxDimension)
	}
	if out.Height != 600 {
		t.Errorf("height = %d, want 600 (aspect preserved)", out.Height)
	}

	w, h := decodeDims(t, out.Data)
	if w != out.Width || h != out.Height {
		t.Errorf("encoded dims %dx%d differ from reported %dx%d", w, h, out.Width, out.Height)
	}
}

func TestConvertImageNeverUpscales(t *testing.T) {
	t.Parallel()

	conv := newTestConverter(t, &fakeRemote{})
	profile := ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast)

	file := MediaFile{Name: "small.jpg", MimeType: "image/jpeg", Data: encodeTestJPEG(t, 640, 480)}
	out, err := conv.Convert(context.Background(), file, enums.FileClassImage, profile)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if out.Width != 640 || out.Height != 480 {
		t.Errorf("dims = %dx%d, want 640x480 unchanged", out.Width, out.Height)
	}
}

func TestConvertImagePreservesAspectRatioPortrait(t *testing.T) {
	t.Parallel()

	conv := newTestConverter(t, &fakeRemote{})
	profile := ProfileFor(enums.DeviceClassMobile, enums.NetworkTierFast)

	file := MediaFile{Name: "tall.jpg", MimeType: "image/jpeg", Data: encodeTestJPEG(t, 1500, 3000)}
	out, err := conv.Convert(context.Background(), file, enums.FileClassImage, profile)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if out.Height != profile.MaxDimension {
		t.Errorf("height = %d, want %d", out.Height, profile.MaxDimension)
	}
	if out.Width != 600 {
		t.Errorf("width = %d, want 600", out.Width)
	}
}

func TestConvertImageEncodesJPEGWithoutWebP(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{webp: false}
	conv := newTestConverter(t, remote)
	profile := ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast)

	file := MediaFile{Name: "photo.png", MimeType: "image/png", Data: encodeTestJPEG(t, 100, 100)}
	out, err := conv.Convert(context.Background(), file, enums.FileClassImage, profile)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if out.MimeType != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", out.MimeType)
	}
	if out.Name != "photo.jpg" {
		t.Errorf("name = %q, want photo.jpg", out.Name)
	}
	if remote.calls != 0 {
		t.Errorf("remote called %d times, want 0", remote.calls)
	}
}

func TestConvertImageUsesRemoteWebP(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{webp: true, output: []byte("webp-blob")}
	conv := newTestConverter(t, remote)
	profile := ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast)

	file := MediaFile{Name: "photo.jpg", MimeType: "image/jpeg", Data: encodeTestJPEG(t, 100, 100)}
	out, err := conv.Convert(context.Background(), file, enums.FileClassImage, profile)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if out.MimeType != "image/webp" {
		t.Errorf("mime = %q, want image/webp", out.MimeType)
	}
	if out.Name != "photo.webp" {
		t.Errorf("name = %q, want photo.webp", out.Name)
	}
	if remote.lastMime != "image/webp" {
		t.Errorf("remote target = %q", remote.lastMime)
	}
}

func TestConvertImageFallsBackToJPEGWhenRemoteFails(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{webp: true, fail: true}
	conv := newTestConverter(t, remote)
	profile := ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast)

	file := MediaFile{Name: "photo.jpg", MimeType: "image/jpeg", Data: encodeTestJPEG(t, 100, 100)}
	out, err := conv.Convert(context.Background(), file, enums.FileClassImage, profile)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if out.MimeType != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg fallback", out.MimeType)
	}
}

func TestConvertCorruptImageFailsFileOnly(t *testing.T) {
	t.Parallel()

	conv := newTestConverter(t, &fakeRemote{})
	profile := ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast)

	file := MediaFile{Name: "broken.jpg", MimeType: "image/jpeg", Data: []byte("not an image")}
	_, err := conv.Convert(context.Background(), file, enums.FileClassImage, profile)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConversion) {
		t.Fatalf("expected conversion error, got %v", err)
	}
}

func TestConvertHEICTargetsWebP(t *testing.T) {
	t.Parallel()

	var webpOut bytes.Buffer
	if err := png.Encode(&webpOut, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	remote := &fakeRemote{webp: true, output: webpOut.Bytes()}
	conv := newTestConverter(t, remote)
	profile := ProfileFor(enums.DeviceClassMobile, enums.NetworkTierFast)

	file := MediaFile{Name: "IMG_0001.heic", MimeType: "image/heic", Data: []byte("heic-bytes")}
	out, err := conv.Convert(context.Background(), file, enums.FileClassHEIC, profile)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if out.MimeType != "image/webp" {
		t.Errorf("mime = %q, want image/webp", out.MimeType)
	}
	if out.Name != "IMG_0001.webp" {
		t.Errorf("name = %q, want IMG_0001.webp", out.Name)
	}
	if remote.lastMime != "image/webp" {
		t.Errorf("remote target = %q", remote.lastMime)
	}
}

func TestConvertHEICFailurePropagatesAsConversionError(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{webp: true, fail: true}
	conv := newTestConverter(t, remote)
	profile := ProfileFor(enums.DeviceClassMobile, enums.NetworkTierFast)

	file := MediaFile{Name: "IMG.heic", MimeType: "image/heic", Data: []byte("heic-bytes")}
	_, err := conv.Convert(context.Background(), file, enums.FileClassHEIC, profile)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConversion) {
		t.Fatalf("expected conversion error, got %v", err)
	}
}

func TestConvertVideoPassesThrough(t *testing.T) {
	t.Parallel()

	conv := newTestConverter(t, &fakeRemote{})
	profile := ProfileFor(enums.DeviceClassDesktop, enums.NetworkTierFast)

	payload := []byte("raw-video-bytes")
	file := MediaFile{Name: "clip.mov", MimeType: "video/quicktime", Data: payload}
	out, err := conv.Convert(context.Background(), file, enums.FileClassVideo, profile)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if out.Name != "clip.mp4" {
		t.Errorf("name = %q, want clip.mp4", out.Name)
	}
	if out.MimeType != "video/mp4" {
		t.Errorf("mime = %q, want video/mp4", out.MimeType)
	}
	if !bytes.Equal(out.Data, payload) {
		t.Error("video bytes must pass through unchanged")
	}
}

func TestBoundedDimensions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		w, h, max  int
		wantW, wantH int
	}{
		{2400, 1200, 1200, 1200, 600},
		{1200, 2400, 1200, 600, 1200},
		{800, 600, 1200, 800, 600},
		{1920, 1920, 1920, 1920, 1920},
		{4000, 10, 1200, 1200, 3},
	}

	for _, tc := range cases {
		gotW, gotH := boundedDimensions(tc.w, tc.h, tc.max)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Errorf("boundedDimensions(%d,%d,%d) = %dx%d, want %dx%d",
				tc.w, tc.h, tc.max, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}
