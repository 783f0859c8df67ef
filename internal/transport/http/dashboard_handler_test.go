package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	apierrors "github.com/PauloMoekotte/Herkomst-ROC/internal/errors"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/exporter"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/ingest"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/schema"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/services"
)

const testDatasetID = "0123456789abcdef0123456789abcdef"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testErrorHandler() *apierrors.ErrorHandler {
	eh := apierrors.NewErrorHandler(discardLogger(), false)
	RegisterErrorMappings(eh)
	return eh
}

// newMockService answers Dashboard lookups for herkomst and rejects everything else
func newMockService() *MockDatasetService {
	m := new(MockDatasetService)
	m.On("Dashboard", "herkomst").Return(dashboard.NewHerkomst(dashboard.HerkomstOptions{}), nil).Maybe()
	m.On("Dashboard", mock.Anything).Return(nil, fmt.Errorf("%w: finance", dashboard.ErrUnknownDashboard)).Maybe()
	return m
}

func serve(t *testing.T, m *MockDatasetService, opts DashboardOptions, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	h := NewDashboardHandler(m, opts, discardLogger(), testErrorHandler())
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)
	return w
}

func problemType(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	typ, _ := body["type"].(string)
	return typ
}

func multipartRequest(t *testing.T, target string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile(UploadField, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDashboardHandler_ListDashboards(t *testing.T) {
	m := newMockService()
	m.On("Dashboards").Return([]services.DashboardInfo{
		{Name: "arbeidsmarkt", Title: "Arbeidsmarkt"},
		{Name: "herkomst", Title: "Herkomst", Exportable: true},
	})

	w := serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count      int                      `json:"count"`
		Dashboards []services.DashboardInfo `json:"dashboards"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "herkomst", body.Dashboards[1].Name)
}

func TestDashboardHandler_GetDashboard(t *testing.T) {
	m := newMockService()
	m.On("Dashboards").Return([]services.DashboardInfo{{Name: "herkomst", Title: "Herkomst"}})

	w := serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, "/herkomst", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Herkomst"`)

	w = serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, "/finance", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.TypeNotFound, problemType(t, w))
}

func TestDashboardHandler_DatasetID(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"dataset id", testDatasetID, http.StatusOK},
		{"default", dashboard.DefaultDatasetID, http.StatusOK},
		{"not hex", strings.Repeat("z", 32), http.StatusBadRequest},
		{"too short", "abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockService()
			m.On("Summary", "herkomst", tt.id).Return(&services.DatasetSummary{ID: tt.id}, nil).Maybe()

			w := serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, "/herkomst/datasets/"+tt.id, nil))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status == http.StatusBadRequest {
				assert.Equal(t, apierrors.TypeValidation, problemType(t, w))
				m.AssertNotCalled(t, "Summary", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestDashboardHandler_Upload(t *testing.T) {
	const csv = "Jaar;MBO naam instelling;Aantal\n2023;ROC van Twente;4\n"

	tests := []struct {
		name      string
		files     map[string]string
		opts      DashboardOptions
		setupMock func(*MockDatasetService)
		status    int
		problem   string
	}{
		{
			name:  "new dataset",
			files: map[string]string{"duo.csv": csv},
			setupMock: func(m *MockDatasetService) {
				m.On("Load", "herkomst", []ingest.Source{{Name: "duo.csv", Data: []byte(csv)}}).
					Return(&services.DatasetSummary{ID: testDatasetID, Status: services.StatusOK}, nil)
			},
			status: http.StatusCreated,
		},
		{
			name:  "cached dataset",
			files: map[string]string{"duo.csv": csv},
			setupMock: func(m *MockDatasetService) {
				m.On("Load", "herkomst", mock.Anything).
					Return(&services.DatasetSummary{ID: testDatasetID, Status: services.StatusOK, Cached: true}, nil)
			},
			status: http.StatusOK,
		},
		{
			name:  "no data",
			files: map[string]string{"leeg.csv": ""},
			setupMock: func(m *MockDatasetService) {
				m.On("Load", "herkomst", mock.Anything).
					Return(&services.DatasetSummary{ID: testDatasetID, Status: services.StatusNoData}, nil)
			},
			status: http.StatusOK,
		},
		{
			name:    "unsupported extension",
			files:   map[string]string{"duo.txt": csv},
			status:  http.StatusBadRequest,
			problem: apierrors.TypeValidation,
		},
		{
			name:    "too many files",
			files:   map[string]string{"a.csv": csv, "b.csv": csv},
			opts:    DashboardOptions{MaxFiles: 1},
			status:  http.StatusBadRequest,
			problem: apierrors.TypeValidation,
		},
		{
			name:  "missing columns",
			files: map[string]string{"duo.csv": "Jaar\n2023\n"},
			setupMock: func(m *MockDatasetService) {
				m.On("Load", "herkomst", mock.Anything).
					Return(nil, &schema.MissingColumnsError{Schema: "herkomst", Missing: []string{"Aantal"}})
			},
			status:  http.StatusUnprocessableEntity,
			problem: apierrors.TypeMissingColumns,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockService()
			if tt.setupMock != nil {
				tt.setupMock(m)
			}

			w := serve(t, m, tt.opts, multipartRequest(t, "/herkomst/datasets", tt.files))

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.problem != "" {
				assert.Equal(t, tt.problem, problemType(t, w))
			} else {
				assert.Equal(t, "/herkomst/datasets/"+testDatasetID, w.Header().Get("Location"))
			}
			if tt.setupMock == nil {
				m.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_UploadRejectsJSON(t *testing.T) {
	m := newMockService()
	req := httptest.NewRequest(http.MethodPost, "/herkomst/datasets", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	w := serve(t, m, DashboardOptions{}, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, apierrors.TypeUnsupportedMedia, problemType(t, w))
}

func TestDashboardHandler_UploadTooLarge(t *testing.T) {
	m := newMockService()
	req := multipartRequest(t, "/herkomst/datasets", map[string]string{"duo.csv": strings.Repeat("x", 4096)})

	w := serve(t, m, DashboardOptions{MaxUploadBytes: 512}, req)

	// the multipart reader may surface the limit itself or as a malformed body
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, w.Code)
	m.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func TestDashboardHandler_GetView(t *testing.T) {
	m := newMockService()
	m.On("View", "herkomst", testDatasetID, mock.MatchedBy(func(req dashboard.Request) bool {
		years, ok := req.Selection.Values("Jaar")
		if !ok || len(years) != 1 || years[0] != "2023" {
			return false
		}
		inst, ok := req.Selection.Values("MBO naam instelling")
		return ok && len(inst) == 2 && req.Params["top"] == "10"
	})).Return(&dashboard.View{Dashboard: "herkomst", Rows: 3}, nil)

	target := "/herkomst/datasets/" + testDatasetID + "/view?year=2023" +
		"&f.MBO+naam+instelling=ROC+van+Twente&f.MBO+naam+instelling=Zone.college&p.top=10"
	w := serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"rows":3`)
	m.AssertExpectations(t)
}

func TestDashboardHandler_GetViewErrors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		err     error
		status  int
		problem string
	}{
		{"invalid selection", "?f.Onbekend=x", fmt.Errorf("%w: unknown column", dashboard.ErrInvalidSelection), http.StatusBadRequest, apierrors.TypeInvalidSelection},
		{"invalid parameter", "?p.top=7", fmt.Errorf("%w: top", dashboard.ErrInvalidParameter), http.StatusBadRequest, apierrors.TypeInvalidSelection},
		{"dataset evicted", "", services.ErrDatasetNotFound, http.StatusNotFound, apierrors.TypeDataNotFound},
		{"parameter name too long", "?p." + strings.Repeat("a", 65) + "=1", nil, http.StatusBadRequest, apierrors.TypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockService()
			if tt.err != nil {
				m.On("View", "herkomst", testDatasetID, mock.Anything).Return(nil, tt.err)
			}

			w := serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, "/herkomst/datasets/"+testDatasetID+"/view"+tt.query, nil))

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.problem, problemType(t, w))
		})
	}
}

func TestDashboardHandler_Export(t *testing.T) {
	m := newMockService()
	m.On("Export", "herkomst", testDatasetID, mock.Anything, exporter.CSV).Return(&services.Export{
		FileName:    "gefilterde_mbo_data.csv",
		ContentType: "text/csv; charset=utf-8",
		Rows:        1,
		Data:        []byte("Jaar\n2023\n"),
	}, nil)

	w := serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, "/herkomst/datasets/"+testDatasetID+"/export.csv", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="gefilterde_mbo_data.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", w.Header().Get("X-Row-Count"))
	assert.Equal(t, "10", w.Header().Get("Content-Length"))
	assert.Equal(t, "Jaar\n2023\n", w.Body.String())
}

func TestDashboardHandler_ExportErrors(t *testing.T) {
	m := newMockService()
	m.On("Export", "herkomst", dashboard.DefaultDatasetID, mock.Anything, exporter.XLSX).Return(nil, services.ErrExportUnavailable)

	w := serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, "/herkomst/datasets/"+testDatasetID+"/export.pdf", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.TypeValidation, problemType(t, w))
	m.AssertNotCalled(t, "Export", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	w = serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, "/herkomst/datasets/default/export.xlsx", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.TypeNotFound, problemType(t, w))
}

func TestDashboardHandler_Chart(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	m := newMockService()
	m.On("Chart", "herkomst", testDatasetID, mock.Anything, "trend").Return(png, nil)
	m.On("Chart", "herkomst", testDatasetID, mock.Anything, "boxplot").Return(nil, fmt.Errorf("%w: no rows", services.ErrChartUnavailable))
	m.On("Chart", "herkomst", testDatasetID, mock.Anything, "nope").Return(nil, fmt.Errorf("%w: nope", dashboard.ErrUnknownChart))

	w := serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, "/herkomst/datasets/"+testDatasetID+"/charts/trend.png", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, png, w.Body.Bytes())

	w = serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, "/herkomst/datasets/"+testDatasetID+"/charts/boxplot.png", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apierrors.TypeNoData, problemType(t, w))

	w = serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodGet, "/herkomst/datasets/"+testDatasetID+"/charts/nope.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardHandler_DeleteDataset(t *testing.T) {
	m := newMockService()
	m.On("Invalidate", "herkomst", testDatasetID).Return(nil).Once()
	m.On("Invalidate", "herkomst", testDatasetID).Return(services.ErrDatasetNotFound)

	w := serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodDelete, "/herkomst/datasets/"+testDatasetID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = serve(t, m, DashboardOptions{}, httptest.NewRequest(http.MethodDelete, "/herkomst/datasets/"+testDatasetID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.TypeDataNotFound, problemType(t, w))
}
