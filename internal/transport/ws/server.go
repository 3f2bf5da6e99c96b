// Package ws streams HUD state to connected clients. The stream is
// push-only: clients handshake with HELLO, receive WELCOME, then get a
// STATE message after every simulation tick. Mutations go through the
// HTTP API.
package ws

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DerekSmithEstrada/kingdom/internal/protocol"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

// SessionInfo is the static handshake payload shared by every client.
type SessionInfo struct {
	TickIntervalSec float64
	CatalogDigest   string
	Seasons         []string
}

type Server struct {
	info SessionInfo
	log  *log.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	nextSession atomic.Uint64
}

type client struct {
	out chan []byte
}

func NewServer(info SessionInfo, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		info:    info,
		log:     logger,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Broadcast fans one tick's HUD out to every connected client. The HUD
// is marshaled once; clients that cannot keep up skip frames instead of
// stalling the caller.
func (s *Server) Broadcast(version uint64, hud any) {
	s.mu.Lock()
	if len(s.clients) == 0 {
		s.mu.Unlock()
		return
	}
	raw, err := json.Marshal(hud)
	if err != nil {
		s.mu.Unlock()
		s.log.Printf("hud marshal: %v", err)
		return
	}
	msg, err := json.Marshal(protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Version:         version,
		HUD:             raw,
	})
	if err != nil {
		s.mu.Unlock()
		return
	}
	for c := range s.clients {
		select {
		case c.out <- msg:
		default:
		}
	}
	s.mu.Unlock()
}

// ClientCount reports the number of connected stream clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := s.handshake(conn)
		if c == nil {
			return
		}
		defer s.detach(c)

		done := make(chan struct{})

		// Writer goroutine: STATE frames plus keepalive pings.
		go func() {
			ping := time.NewTicker(pingPeriod)
			defer ping.Stop()
			for {
				select {
				case <-done:
					return
				case b, ok := <-c.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				case <-ping.C:
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop: the stream carries no client commands, but the
		// read pump is what notices a dead peer.
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		}
		close(done)
	}
}

func (s *Server) handshake(conn *websocket.Conn) *client {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       fmt.Sprintf("hud-%d", s.nextSession.Add(1)),
		TickIntervalSec: s.info.TickIntervalSec,
		CatalogDigest:   s.info.CatalogDigest,
		Seasons:         s.info.Seasons,
	}

	// Register before WELCOME goes out: a client that has seen WELCOME
	// must already be reachable by Broadcast.
	c := &client{out: make(chan []byte, maxQ)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	if err := writeJSON(conn, welcome); err != nil {
		s.detach(c)
		return nil
	}
	return c
}

func (s *Server) detach(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
