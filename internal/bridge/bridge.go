// Package bridge receives the game client's lifecycle events over a local
// WebSocket and feeds them onto the core event bus. Only the event contract
// crosses this boundary; everything engine-side stays in the game process.
package bridge

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/beatnet/serverbrowser/internal/events"
	"github.com/beatnet/serverbrowser/internal/util"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The bridge binds to loopback; the game process is the only caller.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Bridge is the local ingest endpoint for engine events.
type Bridge struct {
	addr string
	bus  *events.Bus
	srv  *http.Server
}

func New(addr string, bus *events.Bus) *Bridge {
	return &Bridge{addr: addr, bus: bus}
}

// Start begins serving the /events WebSocket endpoint. It returns once the
// listener is bound; serving continues until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", b.addr)
	if err != nil {
		return err
	}
	b.addr = ln.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc("/events", b.handleEvents)
	b.srv = &http.Server{Handler: mux}

	go func() {
		if err := b.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("bridge: serve error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), util.ShortTimeout)
		defer cancel()
		_ = b.srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("bridge: listening for engine events")
	return nil
}

// Addr returns the bound listen address.
func (b *Bridge) Addr() string { return b.addr }

func (b *Bridge) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("bridge: upgrade failed")
		return
	}

	connID := uuid.NewString()
	log.Info().Str("conn", connID).Str("remote", r.RemoteAddr).Msg("bridge: game client connected")

	defer func() {
		conn.Close()
		log.Info().Str("conn", connID).Msg("bridge: game client disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("conn", connID).Msg("bridge: read error")
			}
			return
		}

		evt, err := DecodeFrame(data)
		if err != nil {
			log.Warn().Err(err).Str("conn", connID).Msg("bridge: dropping malformed frame")
			continue
		}

		log.Debug().Str("conn", connID).Type("event", evt).Msg("bridge: event")
		b.bus.Publish(evt)
	}
}
