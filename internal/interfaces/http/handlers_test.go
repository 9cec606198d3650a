package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/export"
	"github.com/gigledger/taxexport/internal/models"
	"github.com/gigledger/taxexport/internal/taxexport"
)

type mockExportService struct {
	buildResult *export.BuildResult
	buildErr    error

	record    *models.Export
	getErr    error
	artifact  *export.Artifact
	renderErr error

	lastBuildRequest export.BuildRequest
	lastFormat       string
}

func (m *mockExportService) BuildExport(req export.BuildRequest) (*export.BuildResult, error) {
	m.lastBuildRequest = req
	return m.buildResult, m.buildErr
}

func (m *mockExportService) Get(ownerID, exportID string) (*models.Export, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.record, nil
}

func (m *mockExportService) ListByOwner(ownerID string) ([]models.Export, error) {
	if m.record == nil {
		return nil, nil
	}
	return []models.Export{*m.record}, nil
}

func (m *mockExportService) RenderArtifact(ownerID, exportID, format string) (*export.Artifact, error) {
	m.lastFormat = format
	return m.artifact, m.renderErr
}

func newTestServer(svc ExportService) *Server {
	return NewServer(DefaultServerConfig(), svc, zap.NewNop())
}

func TestHandlers_HealthCheck(t *testing.T) {
	server := newTestServer(&mockExportService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestHandlers_CreateExport(t *testing.T) {
	t.Run("builds an export for the owner", func(t *testing.T) {
		mock := &mockExportService{
			buildResult: &export.BuildResult{
				ExportID:   "exp-123",
				Validation: &taxexport.ValidationResult{IsValid: true},
			},
		}
		server := newTestServer(mock)

		body, _ := json.Marshal(map[string]interface{}{"tax_year": 2024})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exports", bytes.NewReader(body))
		req.Header.Set(ownerHeader, "owner-1")
		server.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "exp-123")
		assert.Equal(t, "owner-1", mock.lastBuildRequest.OwnerID)
		assert.Equal(t, 2024, mock.lastBuildRequest.TaxYear)
		assert.True(t, mock.lastBuildRequest.IncludeTips, "tips default to included")
	})

	t.Run("rejects a body without a tax year", func(t *testing.T) {
		server := newTestServer(&mockExportService{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exports", bytes.NewReader([]byte(`{}`)))
		req.Header.Set(ownerHeader, "owner-1")
		server.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps authorization failures to 403", func(t *testing.T) {
		mock := &mockExportService{
			buildErr: taxexport.NewExportError(taxexport.CodeNotAuthorized, taxexport.ErrNotAuthorized,
				"export requires an authenticated owner"),
		}
		server := newTestServer(mock)

		body, _ := json.Marshal(map[string]interface{}{"tax_year": 2024})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exports", bytes.NewReader(body))
		server.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), taxexport.CodeNotAuthorized)
	})

	t.Run("maps currency failures to 422", func(t *testing.T) {
		mock := &mockExportService{
			buildErr: taxexport.NewExportError(taxexport.CodeNonUSDCurrency, taxexport.ErrNonUSDCurrency,
				"gig gig-1 has currency EUR"),
		}
		server := newTestServer(mock)

		body, _ := json.Marshal(map[string]interface{}{"tax_year": 2024})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exports", bytes.NewReader(body))
		req.Header.Set(ownerHeader, "owner-1")
		server.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), taxexport.CodeNonUSDCurrency)
	})
}

func TestHandlers_GetExport(t *testing.T) {
	mock := &mockExportService{
		record: &models.Export{
			ID:        "exp-123",
			OwnerID:   "owner-1",
			TaxYear:   2024,
			Status:    models.ExportStatusCompleted,
			IsValid:   true,
			CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	server := newTestServer(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/exp-123", nil)
	req.Header.Set(ownerHeader, "owner-1")
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tax_year":2024`)
	assert.Contains(t, w.Body.String(), models.ExportStatusCompleted)
}

func TestHandlers_DownloadArtifact(t *testing.T) {
	t.Run("serves the rendered bytes with headers", func(t *testing.T) {
		mock := &mockExportService{
			artifact: &export.Artifact{
				Filename:    "tax_export_2024.txf",
				ContentType: "application/octet-stream",
				Data:        []byte("V042\r\n"),
			},
		}
		server := newTestServer(mock)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/exp-123/txf", nil)
		req.Header.Set(ownerHeader, "owner-1")
		server.Router().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "txf", mock.lastFormat)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "tax_export_2024.txf")
		assert.Equal(t, "V042\r\n", w.Body.String())
	})

	t.Run("gated formats surface as 422", func(t *testing.T) {
		mock := &mockExportService{
			renderErr: taxexport.NewExportError(taxexport.CodeUnsupported, nil,
				"TXF requires an export with no blocking validation errors"),
		}
		server := newTestServer(mock)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/exp-123/txf", nil)
		req.Header.Set(ownerHeader, "owner-1")
		server.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), taxexport.CodeUnsupported)
	})
}
