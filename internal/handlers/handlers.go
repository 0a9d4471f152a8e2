package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/sundayc666/vision-api/internal/imaging"
	"github.com/sundayc666/vision-api/internal/model"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	classifier model.Classifier
}

func NewHandler(classifier model.Classifier) *Handler {
	return &Handler{classifier: classifier}
}

// Health reports process liveness. It has no model or rate-limiter
// dependency and must stay reachable when /predict is exhausted.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type PredictResponse struct {
	Object     string  `json:"object"`
	Confidence float32 `json:"confidence"`
}

// Predict accepts a multipart image upload, normalizes it and returns the
// classifier's top prediction. Rate limiting has already happened in the
// middleware by the time this runs.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		file, _, err = r.FormFile("image")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image provided, use the 'file' form field")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	input, err := imaging.Normalize(raw)
	if err != nil {
		if errors.Is(err, imaging.ErrDecode) {
			writeError(w, http.StatusBadRequest, "invalid image: supported formats are JPEG, PNG and GIF")
			return
		}
		log.Printf("preprocess error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to preprocess image")
		return
	}

	preds, err := h.classifier.Predict(input)
	if err != nil {
		log.Printf("prediction error: %v", err)
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}
	if len(preds) == 0 {
		log.Printf("classifier returned no predictions")
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	top := preds[0]
	writeJSON(w, http.StatusOK, PredictResponse{Object: top.Label, Confidence: top.Confidence})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
