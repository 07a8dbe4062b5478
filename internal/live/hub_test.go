package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesPageClients(t *testing.T) {
	hub := NewHub(logger.NewNop())
	pageID := uuid.New()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, pageID)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var welcome Message
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "connected", welcome.Type)
	assert.Equal(t, pageID, welcome.PageID)
	assert.Equal(t, 1, hub.Count(pageID))

	incidentID := uuid.New()
	hub.Publish(uuid.New(), Message{Type: "incident_opened"})
	hub.Publish(pageID, Message{Type: "incident_opened", IncidentID: &incidentID, Monitor: "API", ComponentStatus: types.ComponentMajorOutage})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "incident_opened", got.Type)
	assert.Equal(t, pageID, got.PageID)
	require.NotNil(t, got.IncidentID)
	assert.Equal(t, incidentID, *got.IncidentID)
	assert.Equal(t, types.ComponentMajorOutage, got.ComponentStatus)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Count(pageID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishWithoutClients(t *testing.T) {
	hub := NewHub(logger.NewNop())
	hub.Publish(uuid.New(), Message{Type: "incident_resolved"})
}
