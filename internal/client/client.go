// Package client is a typed HTTP client for the prediction API.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"exoplanet-api/internal/api"
	"exoplanet-api/internal/ml"
	"exoplanet-api/internal/schema"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second) // inference can be slow
	}
	r.SetHeader("Content-Type", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// PredictResult mirrors a successful /predict response.
type PredictResult struct {
	Success    bool                `json:"success"`
	Prediction ml.PredictionResult `json:"prediction"`
	InputData  map[string]any      `json:"input_data"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
	Details []string
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Predict submits one candidate. The optional "threshold" key overrides the
// server default.
func (c *Client) Predict(ctx context.Context, candidate map[string]any) (*PredictResult, error) {
	result := &PredictResult{}
	if err := c.do(ctx, resty.MethodPost, "/api/predict", candidate, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Fields returns the field table keyed by field name.
func (c *Client) Fields(ctx context.Context) (map[string]schema.FieldSpec, error) {
	fields := map[string]schema.FieldSpec{}
	if err := c.do(ctx, resty.MethodGet, "/api/fields", nil, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	health := &api.HealthResponse{}
	if err := c.do(ctx, resty.MethodGet, "/api/health", nil, health); err != nil {
		return nil, err
	}
	return health, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	apiErr := &api.ErrorResponse{}
	req := c.rest.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, c.base+path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return &APIError{Status: resp.StatusCode(), Message: msg, Details: apiErr.Details}
	}
	return nil
}
