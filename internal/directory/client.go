package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// patientRecord is the subset of the directory's patient object the
// gateway needs: the patient id and its responsible caregiver.
type patientRecord struct {
	IDPatient      string `json:"id_patient"`
	FkAideSoignant string `json:"fk_aide_soignant"`
}

// passwordRecord is the directory's stored-credential response.
type passwordRecord struct {
	MotDePasse string `json:"mot_de_passe"`
}

// Client calls the external directory API.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient creates a directory API client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// FetchPatientAssignments bulk-fetches all patients and returns the
// patient id → caregiver id mapping. Patients without a caregiver are
// skipped.
func (c *Client) FetchPatientAssignments(ctx context.Context) (map[string]string, error) {
	var records []patientRecord
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&records).
		Get("/patients")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patients: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("directory returned status %d for /patients", resp.StatusCode())
	}

	assignments := make(map[string]string, len(records))
	for _, r := range records {
		if r.FkAideSoignant == "" {
			continue
		}
		assignments[r.IDPatient] = r.FkAideSoignant
	}

	c.logger.Debug("Fetched patient assignments",
		zap.Int("patient_count", len(records)),
		zap.Int("assigned_count", len(assignments)),
	)

	return assignments, nil
}

// FetchCaregiverPassword looks up the stored credential for a
// caregiver id.
func (c *Client) FetchCaregiverPassword(ctx context.Context, caregiverID string) (string, error) {
	var record passwordRecord
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&record).
		Get("/aidesoignants/password/" + caregiverID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch caregiver password: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("directory returned status %d for caregiver %s", resp.StatusCode(), caregiverID)
	}

	return record.MotDePasse, nil
}
