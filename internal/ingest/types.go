package ingest

import (
	"github.com/openannounce/announce-backend/pkg/enums"
)

// MediaFile is one raw file pulled off a multipart batch. It lives only for
// the duration of the batch that carries it.
type MediaFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// ProcessedFile is the normalized output of conversion, ready for upload.
type ProcessedFile struct {
	Name     string
	MimeType string
	Data     []byte
	Class    enums.FileClass
	Width    int
	Height   int
}

// FileOutcome records how a single file fared inside a batch.
type FileOutcome struct {
	FileName string          `json:"file_name"`
	Class    enums.FileClass `json:"class,omitempty"`
	URL      string          `json:"url,omitempty"`
	GCSKey   string          `json:"gcs_key,omitempty"`
	MimeType string          `json:"mime_type,omitempty"`
	Size     int64           `json:"size_bytes,omitempty"`
	Width    int             `json:"width,omitempty"`
	Height   int             `json:"height,omitempty"`
	Hash     string          `json:"-"`
	Err      error           `json:"-"`
	Warning  string          `json:"warning,omitempty"`
}

// Succeeded reports whether the file made it all the way to storage.
func (o FileOutcome) Succeeded() bool {
	return o.Err == nil && o.URL != ""
}

// BatchResult aggregates per-file outcomes for one batch run.
type BatchResult struct {
	BatchID   string        `json:"batch_id"`
	Outcomes  []FileOutcome `json:"outcomes"`
	Requested int           `json:"requested"`
	Accepted  int           `json:"accepted"`
	Capped    bool          `json:"capped"`
}

// Uploaded counts files that reached storage.
func (r BatchResult) Uploaded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// Failed counts files that were skipped or errored.
func (r BatchResult) Failed() int {
	return len(r.Outcomes) - r.Uploaded()
}
