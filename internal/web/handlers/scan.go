package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/campusmess/mess-server/internal/ml"
	"github.com/campusmess/mess-server/internal/scan"
	"github.com/campusmess/mess-server/internal/web/middleware"
)

// ScanHandler handles the combined food-and-face scan endpoint.
type ScanHandler struct {
	orchestrator *scan.Orchestrator
}

// NewScanHandler creates a new scan handler. orchestrator may be nil when the
// ML services are not configured; scans then return 503.
func NewScanHandler(orchestrator *scan.Orchestrator) *ScanHandler {
	return &ScanHandler{orchestrator: orchestrator}
}

type scanItemView struct {
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Qty     int     `json:"quantity"`
	Matched bool    `json:"matched"`
}

type scanResponse struct {
	TransactionID string         `json:"transaction_id"`
	UserID        string         `json:"user_id"`
	FaceMatched   bool           `json:"face_matched"`
	FaceDistance  *float64       `json:"face_distance,omitempty"`
	Items         []scanItemView `json:"items"`
	Total         float64        `json:"total"`
	Detections    []ml.Detection `json:"detections"`
}

// Scan handles POST /api/scan. Expects a multipart form with food_image and
// face_image fields. The transaction lands on the matched face's account, or
// on the requesting user when no face matches closely enough.
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.orchestrator == nil {
		respondError(w, http.StatusServiceUnavailable, "scan services not configured")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	foodImage, _, ok := readFormImage(w, r, "food_image")
	if !ok {
		return
	}
	faceImage, _, ok := readFormImage(w, r, "face_image")
	if !ok {
		return
	}

	result, err := h.orchestrator.RunScan(r.Context(), foodImage, faceImage, user.ID)
	if err != nil {
		if errors.Is(err, scan.ErrMissingImage) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("scan failed for user %s: %v", user.ID, err)
		respondError(w, http.StatusBadGateway, "scan failed")
		return
	}

	items := make([]scanItemView, 0, len(result.Items))
	for _, it := range result.Items {
		items = append(items, scanItemView{
			Name:    it.Name,
			Price:   it.Price,
			Qty:     it.Quantity,
			Matched: it.Item != nil,
		})
	}

	respondJSON(w, http.StatusOK, scanResponse{
		TransactionID: result.Transaction.ID.String(),
		UserID:        result.UserID.String(),
		FaceMatched:   result.Resolution.Resolved,
		FaceDistance:  result.Transaction.FaceDistance,
		Items:         items,
		Total:         result.Total,
		Detections:    result.Detections,
	})
}
