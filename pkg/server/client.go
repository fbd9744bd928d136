package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/grafana/retrace/pkg/retrace"
	"github.com/grafana/retrace/pkg/symtab"
)

// RemoteError is an error reported by the server.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Client sends requests over a single connection. It is safe for
// concurrent use; requests are serialized.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Retrace resolves q on the server.
func (c *Client) Retrace(ctx context.Context, q retrace.Query) (symtab.Result, error) {
	resp, err := c.RoundTrip(ctx, FormatRequest(q))
	if err != nil {
		return symtab.Result{}, err
	}
	return ParseResponse(resp)
}

// RoundTrip sends one request line and returns the response line without
// its terminator.
func (c *Client) RoundTrip(ctx context.Context, line string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The zero deadline clears a previous one.
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return "", err
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	resp, err := c.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return strings.TrimRight(resp, "\r\n"), nil
}

// ParseResponse parses a response line written by FormatResult or
// FormatError.
func ParseResponse(line string) (symtab.Result, error) {
	switch {
	case strings.HasPrefix(line, okPrefix):
		class, methods, _ := strings.Cut(strings.TrimPrefix(line, okPrefix), " ")
		res := symtab.Result{ClassName: class}
		if methods != "" {
			res.MethodNames = strings.Split(methods, ",")
		}
		return res, nil
	case strings.HasPrefix(line, errorPrefix):
		return symtab.Result{}, &RemoteError{Message: strings.TrimPrefix(line, errorPrefix)}
	default:
		return symtab.Result{}, fmt.Errorf("unexpected response %q", line)
	}
}
