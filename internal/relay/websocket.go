package relay

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WSHandler streams decisions over a WebSocket, one JSON text frame per
// event. It honours the same ?kinds= filter as SSEHandler. Messages sent by
// the client are ignored; a close frame ends the stream.
func WSHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kinds := parseKinds(r)

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("relay: websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)
		defer broker.connected("websocket")()

		// Control replies from the reader and event frames from the loop
		// below share conn; mu keeps each frame whole.
		var mu sync.Mutex
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			readClient(conn, &mu)
		}()

		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if kinds != nil && !kinds[evt.Kind] {
					continue
				}
				mu.Lock()
				err := wsutil.WriteServerText(conn, []byte(evt.Payload))
				mu.Unlock()
				if err != nil {
					slog.Debug("relay: websocket write failed", "error", err)
					return
				}
			}
		}
	}
}

// readClient answers pings and closes until the connection fails or the
// client closes it. Data frames are discarded.
func readClient(conn net.Conn, mu *sync.Mutex) {
	control := wsutil.ControlFrameHandler(conn, ws.StateServerSide)
	locked := func(hdr ws.Header, r io.Reader) error {
		mu.Lock()
		defer mu.Unlock()
		return control(hdr, r)
	}
	rd := wsutil.Reader{
		Source:         conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: locked,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return
		}
		if hdr.OpCode.IsControl() {
			if err := locked(hdr, &rd); err != nil {
				return
			}
			continue
		}
		if err := rd.Discard(); err != nil {
			return
		}
	}
}
