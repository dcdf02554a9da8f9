// Package echo is a TCP echo server whose sockets are driven by coro tasks.
//
// Each blocking socket call is offloaded to the reactor with
// [reactor.Loop.Go]. The calling task suspends right away, and the
// completion callback jumps back into it exactly once.
package echo

import (
	"net"

	"github.com/yueyoum/coro"
)

// await runs op off the scheduler and suspends the running task until op
// returns.
func await(s *coro.Scheduler, op func() error) error {
	h := s.Current()
	if h == coro.Main {
		panic("echo: I/O called outside a task")
	}

	var err error
	done := false
	s.Loop().Go(op, func(e error) {
		err, done = e, true
		if jerr := s.Jump(h); jerr != nil {
			s.Logger().Debug("I/O completed for a task that is gone")
		}
	})
	for !done {
		s.Suspend()
	}

	return err
}

// A Conn is a network connection used from a task.
type Conn struct {
	s  *coro.Scheduler
	nc net.Conn
}

// NewConn wraps nc for use by tasks of s.
func NewConn(s *coro.Scheduler, nc net.Conn) *Conn {
	return &Conn{s: s, nc: nc}
}

// Dial connects to addr and suspends the running task until it is done.
func Dial(s *coro.Scheduler, network, addr string) (*Conn, error) {
	var nc net.Conn
	err := await(s, func() (err error) {
		nc, err = net.Dial(network, addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewConn(s, nc), nil
}

// Recv reads at most n bytes.
// It returns what it read and the error of the read, such as io.EOF.
func (c *Conn) Recv(n int) ([]byte, error) {
	buf := make([]byte, n)
	var m int
	err := await(c.s, func() (err error) {
		m, err = c.nc.Read(buf)
		return err
	})
	return buf[:m], err
}

// Send writes all of b.
func (c *Conn) Send(b []byte) error {
	return await(c.s, func() error {
		_, err := c.nc.Write(b)
		return err
	})
}

// Close closes the connection. It does not block.
func (c *Conn) Close() error {
	return c.nc.Close()
}

// RemoteAddr returns the address of the peer.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}
