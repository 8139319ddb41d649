package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	_ "image/gif"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
	"github.com/openannounce/announce-backend/pkg/logger"
)

const (
	mimeWebP = "image/webp"
	mimeJPEG = "image/jpeg"
	mimeMP4  = "video/mp4"
)

type remoteConverter interface {
	Convert(ctx context.Context, blob []byte, sourceMIME, targetMIME string, quality float64) ([]byte, error)
	SupportsWebP(ctx context.Context) bool
}

// Converter normalizes classified files for upload: standard images are
// decoded, bounded and re-encoded, HEIC goes through the remote service,
// video passes through untouched.
type Converter struct {
	remote remoteConverter
	logg   *logger.Logger
}

// NewConverter constructs a converter backed by the remote convert service.
func NewConverter(remote remoteConverter, logg *logger.Logger) (*Converter, error) {
	if remote == nil {
		return nil, fmt.Errorf("remote converter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Converter{remote: remote, logg: logg}, nil
}

// Convert produces the normalized output for one classified file. Failures
// are scoped to the file; callers continue the batch.
func (c *Converter) Convert(ctx context.Context, file MediaFile, class enums.FileClass, profile Profile) (ProcessedFile, error) {
	switch class {
	case enums.FileClassVideo:
		return c.passthroughVideo(file), nil
	case enums.FileClassHEIC:
		return c.convertHEIC(ctx, file, profile)
	case enums.FileClassImage:
		return c.convertImage(ctx, file, profile)
	default:
		return ProcessedFile{}, pkgerrors.New(pkgerrors.CodeUnsupportedMedia,
			fmt.Sprintf("no conversion path for class %q", class))
	}
}

// passthroughVideo normalizes name and MIME only. Transcoding is deferred to
// the CDN tier.
func (c *Converter) passthroughVideo(file MediaFile) ProcessedFile {
	return ProcessedFile{
		Name:     replaceExt(file.Name, ".mp4"),
		MimeType: mimeMP4,
		Data:     file.Data,
		Class:    enums.FileClassVideo,
	}
}

func (c *Converter) convertHEIC(ctx context.Context, file MediaFile, profile Profile) (ProcessedFile, error) {
	target := mimeJPEG
	if c.remote.SupportsWebP(ctx) {
		target = mimeWebP
	}

	out, err := c.remote.Convert(ctx, file.Data, "image/heic", target, profile.HEICQuality)
	if err != nil {
		return ProcessedFile{}, pkgerrors.Wrap(pkgerrors.CodeConversion, err,
			fmt.Sprintf("heic conversion failed for %s", file.Name))
	}

	processed := ProcessedFile{
		Name:     replaceExt(file.Name, extForMime(target)),
		MimeType: target,
		Data:     out,
		Class:    enums.FileClassHEIC,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(out)); err == nil {
		processed.Width = cfg.Width
		processed.Height = cfg.Height
	}
	return processed, nil
}

func (c *Converter) convertImage(ctx context.Context, file MediaFile, profile Profile) (ProcessedFile, error) {
	img, _, err := image.Decode(bytes.NewReader(file.Data))
	if err != nil {
		return ProcessedFile{}, pkgerrors.Wrap(pkgerrors.CodeConversion, err,
			fmt.Sprintf("decoding %s", file.Name))
	}

	bounds := img.Bounds()
	width, height := boundedDimensions(bounds.Dx(), bounds.Dy(), profile.MaxDimension)
	if width != bounds.Dx() || height != bounds.Dy() {
		img = resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	}

	data, mime, err := c.encodeImage(ctx, img, profile.Quality)
	if err != nil {
		return ProcessedFile{}, pkgerrors.Wrap(pkgerrors.CodeConversion, err,
			fmt.Sprintf("encoding %s", file.Name))
	}

	return ProcessedFile{
		Name:     replaceExt(file.Name, extForMime(mime)),
		MimeType: mime,
		Data:     data,
		Class:    enums.FileClassImage,
		Width:    width,
		Height:   height,
	}, nil
}

// encodeImage tries the preferred format first and falls back to the other
// one before giving up on the file.
func (c *Converter) encodeImage(ctx context.Context, img image.Image, quality float64) ([]byte, string, error) {
	if c.remote.SupportsWebP(ctx) {
		data, err := c.encodeWebP(ctx, img, quality)
		if err == nil {
			return data, mimeWebP, nil
		}
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()),
			"webp encode failed, retrying as jpeg")

		data, jerr := encodeJPEG(img, quality)
		if jerr != nil {
			return nil, "", fmt.Errorf("webp: %w (jpeg fallback: %v)", err, jerr)
		}
		return data, mimeJPEG, nil
	}

	data, err := encodeJPEG(img, quality)
	if err != nil {
		return nil, "", err
	}
	return data, mimeJPEG, nil
}

// encodeWebP routes through the remote service via a lossless PNG
// intermediate, since no in-process WebP encoder is available.
func (c *Converter) encodeWebP(ctx context.Context, img image.Image, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png intermediate: %w", err)
	}
	out, err := c.remote.Convert(ctx, buf.Bytes(), "image/png", mimeWebP, quality)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("remote webp encode returned empty blob")
	}
	return out, nil
}

func encodeJPEG(img image.Image, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(quality * 100)}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("jpeg encode returned empty blob")
	}
	return buf.Bytes(), nil
}

// boundedDimensions scales the longer side down to max, preserving aspect
// ratio. Images already inside the bound keep their dimensions.
func boundedDimensions(width, height, max int) (int, int) {
	if max <= 0 || (width <= max && height <= max) {
		return width, height
	}
	if width >= height {
		scaled := int(float64(height)*float64(max)/float64(width) + 0.5)
		if scaled < 1 {
			scaled = 1
		}
		return max, scaled
	}
	scaled := int(float64(width)*float64(max)/float64(height) + 0.5)
	if scaled < 1 {
		scaled = 1
	}
	return scaled, max
}

func replaceExt(name, ext string) string {
	base := name
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base + ext
}

func extForMime(mime string) string {
	switch mime {
	case mimeWebP:
		return ".webp"
	case mimeJPEG:
		return ".jpg"
	case mimeMP4:
		return ".mp4"
	default:
		return ""
	}
}
