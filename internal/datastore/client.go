package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client calls the external data-store API. All calls are
// fire-and-forget from the router's point of view: an error here is
// logged by the caller and never blocks alert delivery.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient creates a data-store API client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// CreateDistribution records one dispensed dose. The payload comes
// straight off the box topic; the patient id is merged in so the store
// can attribute the record.
func (c *Client) CreateDistribution(ctx context.Context, patientID string, payload []byte) error {
	body := map[string]any{"id_patient": patientID}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err == nil {
		for k, v := range fields {
			body[k] = v
		}
	} else {
		body["raw"] = string(payload)
	}

	return c.post(ctx, "/distributions", body)
}

// CreatePrescriptionRequest records a prescription request raised from
// a box.
func (c *Client) CreatePrescriptionRequest(ctx context.Context, patientID, message string) error {
	return c.post(ctx, "/ordonnances", map[string]any{
		"id_patient": patientID,
		"message":    message,
	})
}

// FetchMedicationList reads the patient's current medication list.
func (c *Client) FetchMedicationList(ctx context.Context, patientID string) (json.RawMessage, error) {
	var list json.RawMessage
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&list).
		Get("/medicaments/" + patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch medication list: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("data store returned status %d for patient %s", resp.StatusCode(), patientID)
	}
	return list, nil
}

// CreateClientProvisioning records a box's request to provision a new
// client.
func (c *Client) CreateClientProvisioning(ctx context.Context, patientID, message string) error {
	return c.post(ctx, "/clients", map[string]any{
		"id_patient": patientID,
		"message":    message,
	})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return fmt.Errorf("failed to call data store %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("data store returned status %d for %s", resp.StatusCode(), path)
	}

	c.logger.Debug("Data store call succeeded",
		zap.String("path", path),
	)
	return nil
}
