package echo

import (
	"context"
	"errors"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/yueyoum/coro"
)

// A Handler serves one connection. It runs in a task of its own, and the
// connection is closed when it returns.
type Handler func(co *coro.Coroutine, c *Conn)

// EchoHandler writes back everything it reads until the peer closes the
// connection.
func EchoHandler(co *coro.Coroutine, c *Conn) {
	logger := co.Scheduler().Logger().With(zap.Stringer("remote", c.RemoteAddr()))
	for {
		b, err := c.Recv(4096)
		if len(b) != 0 {
			if err := c.Send(b); err != nil {
				logger.Debug("send failed", zap.Error(err))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("recv failed", zap.Error(err))
			}
			return
		}
	}
}

// A Server accepts connections in a task and serves each in another.
type Server struct {
	s       *coro.Scheduler
	ln      net.Listener
	handler Handler
	logger  *zap.Logger
	served  int
}

// NewServer creates a [Server] on ln. A nil h means [EchoHandler].
func NewServer(s *coro.Scheduler, ln net.Listener, h Handler) *Server {
	if h == nil {
		h = EchoHandler
	}
	return &Server{
		s:       s,
		ln:      ln,
		handler: h,
		logger:  s.Logger().With(zap.Stringer("addr", ln.Addr())),
	}
}

// Addr returns the listener address.
func (srv *Server) Addr() net.Addr {
	return srv.ln.Addr()
}

// Served returns the number of connections accepted so far.
func (srv *Server) Served() int {
	return srv.served
}

// Start spawns the accept task.
func (srv *Server) Start() coro.Handle {
	return srv.s.Spawn("accept", srv.accept)
}

func (srv *Server) accept(co *coro.Coroutine) {
	srv.logger.Info("listening")
	for {
		var nc net.Conn
		err := await(srv.s, func() (err error) {
			nc, err = srv.ln.Accept()
			return err
		})
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				srv.logger.Info("listener closed")
			} else {
				srv.logger.Error("accept failed", zap.Error(err))
			}
			return
		}

		srv.served++
		c := NewConn(srv.s, nc)
		srv.logger.Debug("accepted", zap.Stringer("remote", nc.RemoteAddr()))

		srv.s.Spawn("conn "+nc.RemoteAddr().String(), func(co *coro.Coroutine) {
			defer c.Close()
			srv.handler(co, c)
		})
	}
}

// Serve starts the server and runs the scheduler until ctx is done.
// The listener is closed when ctx is done, and in any case before Serve
// returns.
func (srv *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { srv.ln.Close() })
	defer func() {
		if stop() {
			srv.ln.Close()
		}
	}()

	srv.Start()
	return srv.s.Run(ctx)
}
