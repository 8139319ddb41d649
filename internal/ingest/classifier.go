package ingest

import (
	"path/filepath"
	"strings"

	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
)

var (
	heicMimeTypes = map[string]struct{}{
		"image/heic": {},
		"image/heif": {},
	}
	heicExtensions = map[string]struct{}{
		".heic": {},
		".heif": {},
	}
	videoExtensions = map[string]struct{}{
		".mp4":  {},
		".mov":  {},
		".avi":  {},
		".mkv":  {},
		".webm": {},
	}
)

// Classify decides how a file enters the pipeline from its declared MIME type
// and filename. HEIC detection treats the extension as an equal-weight signal
// because declared MIME types are unreliable for that container.
func Classify(mimeType, fileName string) (enums.FileClass, error) {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(filepath.Ext(fileName))

	if _, ok := heicMimeTypes[mime]; ok {
		return enums.FileClassHEIC, nil
	}
	if _, ok := heicExtensions[ext]; ok {
		return enums.FileClassHEIC, nil
	}

	if strings.HasPrefix(mime, "video/") {
		return enums.FileClassVideo, nil
	}
	if _, ok := videoExtensions[ext]; ok {
		return enums.FileClassVideo, nil
	}

	if strings.HasPrefix(mime, "image/") {
		return enums.FileClassImage, nil
	}

	return "", pkgerrors.New(pkgerrors.CodeUnsupportedMedia, "unsupported file type").
		WithDetails(map[string]string{"file_name": fileName, "mime_type": mimeType})
}
