package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"

	"prolar/internal/apperrors"
	"prolar/internal/models"
	"prolar/internal/session"
)

const imagesField = "images"

type UploadResult struct {
	Filename string               `json:"filename"`
	Image    *models.PendingImage `json:"image,omitempty"`
	Error    string               `json:"error,omitempty"`
}

type UploadResponse struct {
	Results []UploadResult        `json:"results"`
	Images  []models.PendingImage `json:"images"`
}

// OpenDraft starts a creation form with an empty pending image list.
func (h *Handlers) OpenDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	draft := h.UploadService.OpenDraft(r.Context(), s.UID)
	writeSuccess(w, draft, http.StatusCreated)
}

func (h *Handlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	draft, err := h.UploadService.GetDraft(r.Context(), mux.Vars(r)["id"], s.UID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, draft, http.StatusOK)
}

func (h *Handlers) AbandonDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if err := h.UploadService.Discard(r.Context(), mux.Vars(r)["id"], s.UID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImages accepts one or more files under the "images" field. Every file
// gets its own result; a rejected file does not affect the others.
func (h *Handlers) UploadImages(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	draftID := mux.Vars(r)["id"]

	r.Body = http.MaxBytesReader(w, r.Body, h.Cfg.Upload.MaxUploadSize)
	if err := r.ParseMultipartForm(h.Cfg.Upload.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, fmt.Sprintf("upload exceeds %d bytes", h.Cfg.Upload.MaxUploadSize), http.StatusRequestEntityTooLarge)
			return
		}
		WriteError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[imagesField]
	if len(headers) == 0 {
		WriteError(w, "no files under \"images\"", http.StatusBadRequest)
		return
	}

	files := make([]models.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readUploadFile(fh)
		if err != nil {
			WriteError(w, "cannot read "+fh.Filename, http.StatusBadRequest)
			return
		}
		files = append(files, f)
	}

	results, err := h.UploadService.AcceptFiles(r.Context(), draftID, s.UID, files)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	draft, err := h.UploadService.GetDraft(r.Context(), draftID, s.UID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := UploadResponse{Results: make([]UploadResult, 0, len(results)), Images: draft.Images}
	for _, res := range results {
		out := UploadResult{Filename: res.Filename, Image: res.Image}
		if res.Err != nil {
			out.Error = uploadErrorMessage(res.Err)
		}
		resp.Results = append(resp.Results, out)
	}
	writeSuccess(w, resp, http.StatusOK)
}

func readUploadFile(fh *multipart.FileHeader) (models.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return models.UploadFile{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.UploadFile{}, err
	}
	return models.UploadFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnsupportedMediaType):
		return "only JPEG and PNG images are accepted"
	case errors.Is(err, apperrors.ErrBackendUnavailable):
		return "upload failed, try again"
	default:
		return "upload failed"
	}
}

// RemoveDraftImage deletes the stored object and drops it from the list.
// On a storage failure the image stays pending.
func (h *Handlers) RemoveDraftImage(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)

	if err := h.UploadService.RemoveImage(r.Context(), vars["id"], s.UID, vars["name"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) PreviewDraftImage(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)

	img, err := h.UploadService.Preview(r.Context(), vars["id"], s.UID, vars["name"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// SubmitDraft creates the listing from the form and the draft's images.
func (h *Handlers) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var form models.ListingForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	listing, err := h.ListingService.SubmitDraft(r.Context(), mux.Vars(r)["id"], form, s)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/listings/"+listing.ID)
	writeSuccess(w, ListingResponse{Listing: *listing, ContactURL: contactURL(listing)}, http.StatusCreated)
}
