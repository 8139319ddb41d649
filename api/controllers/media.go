package controllers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/openannounce/announce-backend/api/responses"
	"github.com/openannounce/announce-backend/api/validators"
	"github.com/openannounce/announce-backend/internal/ingest"
	"github.com/openannounce/announce-backend/internal/media"
	"github.com/openannounce/announce-backend/pkg/config"
	"github.com/openannounce/announce-backend/pkg/enums"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
	"github.com/openannounce/announce-backend/pkg/logger"
)

const (
	deviceClassHeader = "X-Device-Class"
	networkTierHeader = "X-Network-Tier"

	multipartFileField = "files"
)

type reorderRequest struct {
	URLs []string `json:"urls" validate:"required,min=1"`
}

func slotFromRequest(r *http.Request) (enums.MediaSlot, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("slot"))
	if raw == "" {
		return enums.MediaSlotPrimary, nil
	}
	slot, err := enums.ParseMediaSlot(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid slot")
	}
	return slot, nil
}

// UploadMedia accepts a multipart batch, derives the processing profile from
// client hints, and hands the files to the media service. The whole selection
// is read up front so the pipeline can report progress per file.
func UploadMedia(svc media.Service, ingestCfg config.IngestConfig, logg *logger.Logger) http.HandlerFunc {
	maxBytes := ingestCfg.MaxUploadBytes()

	return func(w http.ResponseWriter, r *http.Request) {
		announcementID, err := announcementIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slot, err := slotFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		device := enums.ParseDeviceClass(r.Header.Get(deviceClassHeader))
		network := enums.ParseNetworkTier(r.Header.Get(networkTierHeader))
		profile := ingest.ProfileFor(device, network)

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File[multipartFileField]
		if len(headers) == 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "no files selected"))
			return
		}

		files := make([]ingest.MediaFile, 0, len(headers))
		for _, header := range headers {
			part, err := header.Open()
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable file part"))
				return
			}
			data, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable file part"))
				return
			}
			files = append(files, ingest.MediaFile{
				Name:     header.Filename,
				MimeType: header.Header.Get("Content-Type"),
				Data:     data,
			})
		}

		output, err := svc.UploadBatch(r.Context(), announcementID, slot, profile, files)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, output)
	}
}

func UploadProgress(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")
		if batchID == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "batch id required"))
			return
		}

		progress, err := svc.Progress(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, progress)
	}
}

func RemoveMedia(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		announcementID, err := announcementIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slot, err := slotFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || index < 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid media index"))
			return
		}

		if err := svc.RemoveAt(r.Context(), announcementID, slot, index); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func ReorderMedia(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		announcementID, err := announcementIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slot, err := slotFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reorderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Reorder(r.Context(), announcementID, slot, payload.URLs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "reordered"})
	}
}
