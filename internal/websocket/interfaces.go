package websocket

import (
	"context"
	"time"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/services"
)

// Connection defines the interface for WebSocket connections
// This allows for proper mocking in tests
type Connection interface {
	// WriteMessage writes a message with the given message type and payload
	WriteMessage(messageType int, data []byte) error

	// ReadMessage reads a message from the connection
	// Returns the message type and payload
	ReadMessage() (messageType int, p []byte, err error)

	Close() error

	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error

	// SetReadLimit sets the maximum size for a message read from the connection
	SetReadLimit(limit int64)

	SetPongHandler(h func(string) error)

	// RemoteAddr returns the remote network address
	RemoteAddr() string
}

// Renderer renders dashboard views for a live client
type Renderer interface {
	View(ctx context.Context, name, id string, req dashboard.Request) (*dashboard.View, error)
}

// DatasetService is what the upgrade handler needs from services.DatasetService
type DatasetService interface {
	Renderer
	Summary(ctx context.Context, name, id string) (*services.DatasetSummary, error)
}
