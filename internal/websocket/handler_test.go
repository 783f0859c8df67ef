package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	apierrors "github.com/PauloMoekotte/Herkomst-ROC/internal/errors"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/query"
)

func newLiveServer(t *testing.T, r *fakeRenderer) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub(nil, discardLogger())
	hub.Start()
	t.Cleanup(hub.Stop)

	h := NewHandler(hub, r, HandlerOptions{}, testErrorHandler(), discardLogger())
	router := chi.NewRouter()
	router.Get("/ws/dashboards/{dashboard}/datasets/{id}", h.ServeHTTP)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, id string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/dashboards/herkomst/datasets/" + id
	return websocket.DefaultDialer.Dial(u, nil)
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandler_LiveView(t *testing.T) {
	r := newFakeRenderer()
	srv, hub := newLiveServer(t, r)

	conn, _, err := dial(t, srv, testDataset)
	require.NoError(t, err)
	defer conn.Close()

	hello := read(t, conn)
	assert.Equal(t, TypeConnected, hello.Type)
	assert.NotEmpty(t, hello.ClientID)
	assert.Equal(t, testDataset, hello.Dataset)

	initial := read(t, conn)
	assert.Equal(t, TypeView, initial.Type)
	assert.Equal(t, uint64(1), initial.Seq)

	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeSelect, Request: dashboard.Request{Params: map[string]string{"wait": "1"}}}))
	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatal("slow render never started")
	}
	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeSelect, Request: dashboard.Request{
		Selection: query.NewSelection().With("Jaar", "2023").With("MBO naam instelling", "Zone.college"),
	}}))

	latest := read(t, conn)
	assert.Equal(t, TypeView, latest.Type)
	assert.Equal(t, uint64(3), latest.Seq)
	assert.Equal(t, 2, latest.View.Rows)
	assert.Eventually(t, func() bool { return r.cancelCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Invalidated(testDataset)
	gone := read(t, conn)
	assert.Equal(t, TypeInvalidated, gone.Type)
}

func TestHandler_UnknownDataset(t *testing.T) {
	srv, hub := newLiveServer(t, newFakeRenderer())

	_, resp, err := dial(t, srv, "ffffffffffffffffffffffffffffffff")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHandler_PlainRequestRejected(t *testing.T) {
	srv, hub := newLiveServer(t, newFakeRenderer())

	resp, err := http.Get(srv.URL + "/ws/dashboards/herkomst/datasets/" + testDataset)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var problem map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, apierrors.TypeWebSocketUpgrade, problem["type"])
	assert.Equal(t, "WEBSOCKET_UPGRADE_FAILED", problem["error_code"])
	assert.Equal(t, 0, hub.ClientCount())
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"any origin", nil, "https://evil.example", true},
		{"no origin header", []string{"monitor.roc.nl"}, "", true},
		{"host match", []string{"monitor.roc.nl"}, "https://monitor.roc.nl", true},
		{"full origin match", []string{"http://localhost:8080"}, "http://localhost:8080", true},
		{"wildcard", []string{"*"}, "https://other.example", true},
		{"same host", []string{"monitor.roc.nl"}, "http://example.com", true},
		{"rejected", []string{"monitor.roc.nl"}, "https://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.allowed)(req))
		})
	}
}
