package websocket

import (
	"time"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	apierrors "github.com/PauloMoekotte/Herkomst-ROC/internal/errors"
)

// Server message types
const (
	TypeConnected   = "connected"
	TypeView        = "view"
	TypeError       = "error"
	TypeInvalidated = "invalidated"
)

// Client message types
const (
	TypeSelect    = "select"
	TypeHeartbeat = "heartbeat"
)

// Message is sent from the server to a live client. Seq identifies the
// selection a view or error answers.
type Message struct {
	Type      string                    `json:"type"`
	Seq       uint64                    `json:"seq,omitempty"`
	ClientID  string                    `json:"client_id,omitempty"`
	Dashboard string                    `json:"dashboard,omitempty"`
	Dataset   string                    `json:"dataset,omitempty"`
	View      *dashboard.View           `json:"view,omitempty"`
	Error     *apierrors.ProblemDetails `json:"error,omitempty"`
	TraceID   string                    `json:"trace_id,omitempty"`
	Timestamp time.Time                 `json:"timestamp"`
}

// Inbound is a message from a live client
type Inbound struct {
	Type    string            `json:"type" validate:"required,oneof=select heartbeat"`
	Request dashboard.Request `json:"request"`
}
