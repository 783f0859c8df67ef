package websocket

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(s string) *url.URL {
	u, err := url.Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func newHubClient(hub *Hub, dataset string) *Client {
	return NewClient(hub, NewMockConnection(), ClientConfig{
		Dashboard: "herkomst",
		Dataset:   dataset,
		Renderer:  newFakeRenderer(),
	}, discardLogger())
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(nil, discardLogger())
	hub.Start()
	defer hub.Stop()

	a := newHubClient(hub, testDataset)
	b := newHubClient(hub, testDataset)
	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Unregister(a)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	_, ok := <-a.send
	assert.False(t, ok, "unregister closes the send queue")

	// a second unregister is a no-op
	hub.Unregister(a)
	assert.Equal(t, int64(2), hub.Stats().TotalConnections)
}

func TestHub_Invalidated(t *testing.T) {
	hub := NewHub(nil, discardLogger())
	hub.Start()
	defer hub.Stop()

	watching := newHubClient(hub, testDataset)
	other := newHubClient(hub, "default")
	hub.Register(watching)
	hub.Register(other)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Invalidated(testDataset)

	msg := next(t, watching)
	assert.Equal(t, TypeInvalidated, msg.Type)
	assert.Equal(t, testDataset, msg.Dataset)
	assert.Equal(t, "herkomst", msg.Dashboard)
	assertQuiet(t, other)
	assert.Eventually(t, func() bool { return hub.Stats().MessagesSent == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_Stop(t *testing.T) {
	hub := NewHub(nil, discardLogger())
	hub.Start()

	c := newHubClient(hub, testDataset)
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Stop()
	hub.Stop()

	assert.Equal(t, 0, hub.ClientCount())
	_, ok := <-c.send
	assert.False(t, ok)

	late := newHubClient(hub, testDataset)
	hub.Register(late)
	_, ok = <-late.send
	assert.False(t, ok, "clients registered after stop are closed")
}
