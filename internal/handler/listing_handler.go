package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"prolar/internal/apperrors"
	"prolar/internal/models"
	"prolar/internal/session"
)

const whatsAppURL = "https://api.whatsapp.com/send"

type ListingResponse struct {
	models.Listing
	ContactURL string `json:"contactUrl"`
}

type ValidateRequest struct {
	Form   models.ListingForm `json:"form"`
	Fields []string           `json:"fields"`
}

type ValidateResponse struct {
	Valid  bool              `json:"valid"`
	Fields map[string]string `json:"fields"`
}

// contactURL links to a WhatsApp chat with the listing's phone and a
// greeting naming the listing.
func contactURL(l *models.Listing) string {
	q := url.Values{}
	q.Set("phone", l.Phone)
	q.Set("text", "Olá! Gostaria de alugar esse imóvel "+l.Name)
	return whatsAppURL + "?" + q.Encode()
}

// GetListings serves the home page: every listing, or a name-prefix search
// when q is present.
func (h *Handlers) GetListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.ListingService.SearchByName(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, listings, http.StatusOK)
}

// GetListing serves the detail page. An unknown id sends the client home.
func (h *Handlers) GetListing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	listing, err := h.ListingService.GetByID(r.Context(), id)
	if errors.Is(err, apperrors.ErrNotFound) {
		w.Header().Set("Location", "/")
		writeJSON(w, ErrorResponse{Error: "listing not found", Redirect: "/"}, http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, ListingResponse{Listing: *listing, ContactURL: contactURL(listing)}, http.StatusOK)
}

// ValidateListing checks a partial creation form without side effects. An
// empty field list validates the whole form.
func (h *Handlers) ValidateListing(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	fields := h.ListingService.ValidateFields(req.Form, req.Fields...)
	if fields == nil {
		fields = apperrors.FieldErrors{}
	}
	writeSuccess(w, ValidateResponse{Valid: len(fields) == 0, Fields: fields}, http.StatusOK)
}

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	listings, err := h.ListingService.ListByOwner(r.Context(), s.UID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, listings, http.StatusOK)
}

// DeleteListing runs the cascade. Images that could not be removed are
// reported in the body; the listing itself is gone either way.
func (h *Handlers) DeleteListing(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		WriteError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	report, err := h.DeletionService.Delete(r.Context(), id, s)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if len(report.ImageFailures) > 0 {
		h.Log.Warn("listing deleted with leftover images",
			zap.String("listing_id", id), zap.Int("failures", len(report.ImageFailures)))
	}
	writeSuccess(w, report, http.StatusOK)
}
