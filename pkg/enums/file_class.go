package enums

import "fmt"

// FileClass is the ingestion pipeline's verdict on a selected file.
type FileClass string

const (
	FileClassImage FileClass = "image"
	FileClassHEIC  FileClass = "heic_image"
	FileClassVideo FileClass = "video"
)

var validFileClasses = []FileClass{
	FileClassImage,
	FileClassHEIC,
	FileClassVideo,
}

// String returns the literal string for the class.
func (f FileClass) String() string {
	return string(f)
}

// IsValid reports whether the class is known.
func (f FileClass) IsValid() bool {
	for _, candidate := range validFileClasses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFileClass converts raw input into a FileClass.
func ParseFileClass(value string) (FileClass, error) {
	for _, candidate := range validFileClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid file class %q", value)
}
