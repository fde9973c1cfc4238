package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchPatientAssignments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/patients", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id_patient": "P1", "fk_aide_soignant": "aide-1", "nom": "Martin"},
			{"id_patient": "P2", "fk_aide_soignant": "aide-2"},
			{"id_patient": "P3", "fk_aide_soignant": ""}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	assignments, err := client.FetchPatientAssignments(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"P1": "aide-1", "P2": "aide-2"}, assignments)
}

func TestFetchPatientAssignments_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	_, err := client.FetchPatientAssignments(context.Background())

	assert.Error(t, err)
}

func TestFetchCaregiverPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/aidesoignants/password/aide-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"mot_de_passe": "s3cret"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	password, err := client.FetchCaregiverPassword(context.Background(), "aide-1")

	require.NoError(t, err)
	assert.Equal(t, "s3cret", password)
}

func TestFetchCaregiverPassword_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	_, err := client.FetchCaregiverPassword(context.Background(), "missing")

	assert.Error(t, err)
}
