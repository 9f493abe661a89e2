package command

import (
	"fmt"
	"net"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Server hosts the websocket command endpoint on its own goroutine.
type Server struct {
	addr       string
	dispatcher *Dispatcher
	log        *log.Logger
	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener
}

// NewServer returns a Server bound to addr (host:port).
func NewServer(addr string, dispatcher *Dispatcher, logger *log.Logger) *Server {
	return &Server{
		addr:       addr,
		dispatcher: dispatcher,
		log:        logger,
		upgrader:   websocket.Upgrader{},
	}
}

// Start binds the listener and serves in the background. A port already
// in use surfaces here, before any display starts.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("binding command server: %w", err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HandleWS)
	s.httpServer = &http.Server{Handler: mux}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("command server stopped", "err", err)
		}
	}()
	s.log.Info("command server listening", "addr", s.addr)
	return nil
}

// Stop closes the listener and any active connections.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}

// HandleWS upgrades one connection and answers commands until it closes.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.log.Debug("command received", "raw", string(raw))
		if err := conn.WriteMessage(websocket.TextMessage, s.dispatcher.Handle(raw)); err != nil {
			s.log.Warn("command response write failed", "err", err)
			return
		}
	}
}
