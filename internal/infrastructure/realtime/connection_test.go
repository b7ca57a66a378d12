package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pair starts a websocket server and returns the server-side Connection
// together with the dialed client socket.
func pair(t *testing.T) (*Connection, *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conns := make(chan *Connection, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- NewConnection(ws)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case c := <-conns:
		return c, client
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
		return nil, nil
	}
}

func TestConnection_SendWritesTextFrame(t *testing.T) {
	conn, client := pair(t)
	conn.Start()
	defer conn.Close(websocket.CloseNormalClosure, "")

	require.NoError(t, conn.Send([]byte(`{"event":"ping"}`)))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.JSONEq(t, `{"event":"ping"}`, string(data))
}

func TestConnection_SendAfterCloseFails(t *testing.T) {
	conn, _ := pair(t)
	conn.Start()

	conn.Close(websocket.CloseNormalClosure, "bye")
	conn.Close(websocket.CloseNormalClosure, "again")

	assert.ErrorIs(t, conn.Send([]byte("x")), ErrConnectionClosed)
	select {
	case <-conn.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestConnection_FullBufferClosesConnection(t *testing.T) {
	conn, _ := pair(t)
	// No write loop: the buffer can only fill up.
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, conn.Send([]byte("x")))
	}
	assert.ErrorIs(t, conn.Send([]byte("overflow")), ErrBufferExceeded)
	assert.ErrorIs(t, conn.Send([]byte("x")), ErrConnectionClosed)
}

func TestConnection_ConcurrentSendAndClose(t *testing.T) {
	conn, _ := pair(t)
	conn.Start()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = conn.Send([]byte("x"))
			}
		}()
	}
	conn.Close(websocket.CloseNormalClosure, "")
	wg.Wait()
}
