package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn, strings.Split(r.URL.Query().Get("components"), ","))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server, components string) *websocket.Conn {
	t.Helper()
	before := hub.ClientCount()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?components=" + components
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.ClientCount() == before+1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn, wait time.Duration) (Message, error) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(wait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return Message{}, err
	}
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg, nil
}

func TestHub_DeliversOnlyToAffectedRooms(t *testing.T) {
	hub, srv := startHub(t)
	n := NewNotifier(discardLogger())
	n.Subscribe(Wildcard, hub.Deliver)

	conn := dial(t, hub, srv, ComponentLeagueTable)

	n.Publish(n.NewUpdate(TypeAdminRequest, ActionCreated, "r1", nil))
	n.Publish(n.NewUpdate(TypeMatch, ActionUpdated, "m1", map[string]string{"score": "2-1"}))

	msg, err := readMessage(t, conn, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE", msg.Type)
	assert.Equal(t, TypeMatch, msg.Payload.Type, "the admin request update must not reach league-table")
	assert.Equal(t, []string{ComponentLeagueTable}, msg.Components)
}

func TestHub_ClientInSeveralRoomsGetsUpdateOnce(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, hub, srv, ComponentLeagueTable+","+ComponentLiveResults)

	n := NewNotifier(discardLogger())
	require.NoError(t, hub.Deliver(n.NewUpdate(TypeScore, ActionUpdated, "m1", nil)))

	msg, err := readMessage(t, conn, time.Second)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ComponentLeagueTable, ComponentLiveResults}, msg.Components)

	_, err = readMessage(t, conn, 100*time.Millisecond)
	assert.Error(t, err, "no second copy expected")
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, hub, srv, ComponentSchedule)

	conn.Close()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}
