package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"exoplanet-api/internal/common"
	"exoplanet-api/internal/features"
	"exoplanet-api/internal/ml"
	"exoplanet-api/internal/schema"

	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps the size of a prediction request body.
const maxBodyBytes = 1 << 20

// Classifier turns a validated record into a prediction.
type Classifier interface {
	Classify(ctx context.Context, rec features.Record, threshold *float64) (*ml.PredictionResult, error)
}

// MetricsInterface is the subset of metrics the HTTP layer records.
type MetricsInterface interface {
	HTTPRequestObserve(route string, code int)
	ValidationFailuresInc()
}

// PredictResponse is returned by a successful prediction.
type PredictResponse struct {
	Success    bool                 `json:"success"`
	Prediction *ml.PredictionResult `json:"prediction"`
	InputData  features.Record      `json:"input_data"`
}

// ErrorResponse carries an error message and optional validation details.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Handler serves the prediction endpoints.
type Handler struct {
	classifier Classifier
	table      schema.Table
	opts       schema.Options
	metrics    MetricsInterface
}

func NewHandler(classifier Classifier, table schema.Table, opts schema.Options, metrics MetricsInterface) *Handler {
	return &Handler{
		classifier: classifier,
		table:      table,
		opts:       opts,
		metrics:    metrics,
	}
}

// Predict validates the posted candidate and classifies it.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeObject(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		msg := common.MsgNoData
		if !errors.Is(err, errNoData) {
			msg = common.MsgInvalidJSON
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
		return
	}

	record, details := schema.Validate(raw, h.table, h.opts)
	threshold, msg := schema.Threshold(raw)
	if msg != "" {
		details = append(details, msg)
	}
	if len(details) > 0 {
		if h.metrics != nil {
			h.metrics.ValidationFailuresInc()
		}
		log.Debug().Strs("details", details).Msg("request rejected by validation")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: common.MsgValidationFailed, Details: details})
		return
	}

	result, err := h.classifier.Classify(r.Context(), record, threshold)
	if err != nil {
		log.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("prediction failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprintf("prediction failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		Success:    true,
		Prediction: result,
		InputData:  record,
	})
}

// Fields returns the expected input fields and their constraints.
func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.table)
}

// Health reports liveness. It never touches the model.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Message: common.MsgHealthy})
}

var errNoData = errors.New("no data")

// decodeObject reads a JSON object, keeping numbers as json.Number. An empty
// body, null, an empty object or a non-object value yields errNoData.
func decodeObject(body io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errNoData
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}

	obj, ok := v.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, errNoData
	}
	return obj, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
