package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/config"
	apierrors "github.com/PauloMoekotte/Herkomst-ROC/internal/errors"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/services"
	ws "github.com/PauloMoekotte/Herkomst-ROC/internal/websocket"
)

const herkomstCSV = "Jaar;MBO naam instelling;Aantal;Herkomst naam instelling\n" +
	"2022;ROC van Twente;10;Twickel College\n" +
	"2023;ROC van Twente;7;Twickel College\n" +
	"2023;Zone.college;8;Het Assink\n"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.Enabled = false
	cfg.Dashboard.ChartWidth = 320
	cfg.Dashboard.ChartHeight = 240
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := NewApplicationWithConfig(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, app.Stop(context.Background()))
	})
	return app
}

func do(t *testing.T, app *Application, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func uploadRequest(t *testing.T, path, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestNewApplicationWithConfig(t *testing.T) {
	app := newTestApp(t, testConfig())

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.DatasetService)
	assert.NotNil(t, app.HealthService)
	assert.NotNil(t, app.WebSocketHub)
	assert.Equal(t, ":0", app.Server.Addr)
	assert.Equal(t, 1<<20, app.Server.MaxHeaderBytes)

	names := []string{}
	for _, d := range app.Registry.All() {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"arbeidsmarkt", "herkomst", "instroom"}, names)
}

func TestBuildRegistry_InvalidEncoding(t *testing.T) {
	cfg := testConfig()
	cfg.Ingest.Encodings = []string{"utf-8", "ebcdic"}

	_, err := BuildRegistry(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ebcdic")

	var appErr *apierrors.AppError
	assert.ErrorAs(t, err, &appErr)
}

func TestDatasetOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Dashboard.ExportBOM = true
	cfg.Ingest.MaxFiles = 3

	opts := DatasetOptions(cfg)
	assert.True(t, opts.Exporter.BOMPrefix)
	assert.Equal(t, 3, opts.MaxFiles)
	assert.Equal(t, cfg.Cache.TTL, opts.CacheTTL)
	assert.Equal(t, 320, opts.ChartWidth)
}

func TestRoutes(t *testing.T) {
	app := newTestApp(t, testConfig())

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"index", http.MethodGet, "/", http.StatusOK},
		{"health", http.MethodGet, "/api/health", http.StatusOK},
		{"ready", http.MethodGet, "/api/health/ready", http.StatusOK},
		{"live", http.MethodGet, "/api/health/live", http.StatusOK},
		{"version", http.MethodGet, "/api/version", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"dashboards", http.MethodGet, "/api/dashboards", http.StatusOK},
		{"dashboard", http.MethodGet, "/api/dashboards/instroom", http.StatusOK},
		{"unknown dashboard", http.MethodGet, "/api/dashboards/finance", http.StatusNotFound},
		{"default dataset", http.MethodGet, "/api/dashboards/instroom/datasets/default", http.StatusOK},
		{"default view", http.MethodGet, "/api/dashboards/instroom/datasets/default/view", http.StatusOK},
		{"default chart", http.MethodGet, "/api/dashboards/instroom/datasets/default/charts/sector.png", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/health", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, app, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	app := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/health/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := do(t, app, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestUploadViewExportDelete(t *testing.T) {
	app := newTestApp(t, testConfig())

	w := do(t, app, uploadRequest(t, "/api/dashboards/herkomst/datasets", "duo.csv", herkomstCSV))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var summary services.DatasetSummary
	decode(t, w, &summary)
	assert.Equal(t, services.StatusOK, summary.Status)
	assert.Equal(t, 3, summary.Rows)
	base := "/api/dashboards/herkomst/datasets/" + summary.ID
	assert.Equal(t, base, w.Header().Get("Location"))

	// identical upload is served from the cache
	w = do(t, app, uploadRequest(t, "/api/dashboards/herkomst/datasets", "duo.csv", herkomstCSV))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, app, httptest.NewRequest(http.MethodGet, base+"/view?year=2023", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view struct {
		Rows int `json:"rows"`
	}
	decode(t, w, &view)
	assert.Equal(t, 2, view.Rows)

	w = do(t, app, httptest.NewRequest(http.MethodGet, base+"/export.csv?f.MBO%20naam%20instelling=Zone.college", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "1", w.Header().Get("X-Row-Count"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "gefilterde_mbo_data.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Jaar,MBO naam instelling"))

	w = do(t, app, httptest.NewRequest(http.MethodGet, base+"/view?f.Onbekend=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, app, httptest.NewRequest(http.MethodDelete, base, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, app, httptest.NewRequest(http.MethodGet, base+"/view", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadMissingColumns(t *testing.T) {
	app := newTestApp(t, testConfig())

	w := do(t, app, uploadRequest(t, "/api/dashboards/herkomst/datasets", "duo.csv", "Jaar;Aantal\n2023;4\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestLiveView(t *testing.T) {
	app := newTestApp(t, testConfig())
	server := httptest.NewServer(app.Router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/dashboards/instroom/datasets/default"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() ws.Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg ws.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	connected := read()
	assert.Equal(t, ws.TypeConnected, connected.Type)
	assert.NotEmpty(t, connected.ClientID)

	view := read()
	require.Equal(t, ws.TypeView, view.Type)
	assert.Equal(t, uint64(1), view.Seq)
	require.NotNil(t, view.View)
	assert.Equal(t, "instroom", view.View.Dashboard)

	_, resp, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(server.URL, "http")+"/ws/dashboards/herkomst/datasets/default", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
