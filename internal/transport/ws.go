package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"golang.org/x/oauth2"
)

const defaultHandshakeTimeout = 10 * time.Second

// WSDialer opens the update channel for one bucket over a WebSocket.
type WSDialer struct {
	BaseURL string // ws:// or wss:// origin
	Bucket  string
	Tokens  oauth2.TokenSource
	Timeout time.Duration
}

// SocketURL returns the endpoint the dialer connects to.
func (d *WSDialer) SocketURL() string {
	return d.BaseURL + "/sync/socket/" + url.PathEscape(d.Bucket)
}

// Dial performs the handshake with a bearer credential and returns the
// open channel.
func (d *WSDialer) Dial(ctx context.Context) (Channel, error) {
	header := http.Header{}
	if d.Tokens != nil {
		tok, err := d.Tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("fetching token: %w", err)
		}
		header.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := ws.Dialer{
		Header:  ws.HandshakeHeaderHTTP(header),
		Timeout: timeout,
	}

	conn, br, _, err := dialer.Dial(ctx, d.SocketURL())
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", d.SocketURL(), err)
	}
	return newWSChannel(conn, br), nil
}

type wsChannel struct {
	conn net.Conn
	r    io.Reader

	readMu  sync.Mutex
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// newWSChannel wraps an upgraded connection. br holds frames the server sent
// along with the handshake response; it is nil when there were none.
func newWSChannel(conn net.Conn, br *bufio.Reader) *wsChannel {
	var r io.Reader = conn
	if br != nil {
		pending := make([]byte, br.Buffered())
		n, _ := io.ReadFull(br, pending)
		ws.PutReader(br)
		r = io.MultiReader(bytes.NewReader(pending[:n]), conn)
	}
	return &wsChannel{conn: conn, r: r, closed: make(chan struct{})}
}

type readWriter struct {
	io.Reader
	io.Writer
}

func (c *wsChannel) Receive(ctx context.Context) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.isClosed() {
		return nil, ErrChannelClosed
	}
	_ = c.conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	rw := readWriter{Reader: c.r, Writer: lockedWriter{c}}
	for {
		data, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if c.isClosed() {
				return nil, ErrChannelClosed
			}
			return nil, fmt.Errorf("reading frame: %w", err)
		}
		if op == ws.OpText || op == ws.OpBinary {
			return data, nil
		}
	}
}

func (c *wsChannel) Send(ctx context.Context, payload []byte) error {
	return c.write(ctx, ws.OpText, payload)
}

func (c *wsChannel) Ping(ctx context.Context) error {
	return c.write(ctx, ws.OpPing, nil)
}

func (c *wsChannel) write(ctx context.Context, op ws.OpCode, payload []byte) error {
	if c.isClosed() {
		return ErrChannelClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if err := wsutil.WriteClientMessage(c.conn, op, payload); err != nil {
		return fmt.Errorf("writing %v frame: %w", op, err)
	}
	return nil
}

func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, body)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *wsChannel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// lockedWriter serializes control-frame replies written by the reader with
// application writes.
type lockedWriter struct {
	c *wsChannel
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.writeMu.Lock()
	defer w.c.writeMu.Unlock()
	return w.c.conn.Write(p)
}
