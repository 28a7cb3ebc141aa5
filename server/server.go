// Package server runs the accept loop that feeds the hub.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/preetjindal555-coder/what-sapp/domain"
	"github.com/preetjindal555-coder/what-sapp/hub"
	"github.com/preetjindal555-coder/what-sapp/tcp"
)

type Server struct {
	addr    string
	hub     *hub.Hub
	handler domain.MessageHandler

	listener net.Listener

	closeOnce sync.Once
	done      chan struct{}
}

func New(addr string, h *hub.Hub, handler domain.MessageHandler) *Server {
	return &Server{
		addr:    addr,
		hub:     h,
		handler: handler,
		done:    make(chan struct{}),
	}
}

// Listen binds the TCP listener. A bind failure is fatal for the
// caller: the server cannot start without its endpoint.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.addr, err)
	}
	s.listener = ln
	slog.Info("chat server listening", "addr", ln.Addr().String())
	return nil
}

// Addr is the bound listener address, useful when listening on port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Serve accepts connections until Shutdown. Each accepted connection
// is registered, its join announced, and its session pumps started.
// Accept errors are logged and the loop continues.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("accept error", "error", err)
			continue
		}

		label := s.hub.NextLabel()
		conn := tcp.NewConn(uuid.NewString(), label, nc, s.hub, s.handler)
		s.hub.Register(conn)
		s.hub.Broadcast(domain.JoinMessage(label))
		conn.Start()
	}
}

// Shutdown stops accepting, closes every registered connection so the
// session loops unblock and exit, and closes the listener. Safe to
// call more than once.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.hub.CloseAll()
		slog.Info("chat server stopped")
	})
}
