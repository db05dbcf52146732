package board

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ListenEvents connects to the server's board event stream and refreshes the
// store whenever another session mutates a task. Reconnects until the context
// is cancelled; the stream is an optimization, so failures only log.
func (s *Store) ListenEvents(ctx context.Context) {
	wsURL, err := boardSocketURL(s.api.BaseURL(), s.session.Token())
	if err != nil {
		log.Printf("⚠️ Invalid server URL for event stream: %v", err)
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}

		s.readEvents(ctx, conn)
		conn.Close()
	}
}

func (s *Store) readEvents(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		// Any event means the board changed somewhere else; refetch rather
		// than patching from the payload
		s.Refresh()
	}
}

func boardSocketURL(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch {
	case strings.EqualFold(u.Scheme, "https"):
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws/board"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
