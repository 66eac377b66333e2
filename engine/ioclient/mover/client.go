package mover

import (
	"context"
	"fmt"
	"net"

	"github.com/lyzr/workflow-engine/engine/ioclient"
	"github.com/lyzr/workflow-engine/engine/model"
)

var _ ioclient.IoClient = (*Client)(nil)

// Client is a pooled-connection IoClient talking to the mover broker over a
// Unix domain socket.
type Client struct {
	socketPath string
	connPool   chan net.Conn
}

// New creates a Client with a connection pool of the given size (the
// existing mover CAS client uses 8; callers size it to their concurrency).
func New(socketPath string, poolSize int) *Client {
	if socketPath == "" {
		socketPath = "/tmp/mover.sock"
	}
	if poolSize <= 0 {
		poolSize = 8
	}
	return &Client{
		socketPath: socketPath,
		connPool:   make(chan net.Conn, poolSize),
	}
}

func (c *Client) getConn() (net.Conn, error) {
	select {
	case conn := <-c.connPool:
		return conn, nil
	default:
		return net.Dial("unix", c.socketPath)
	}
}

func (c *Client) releaseConn(conn net.Conn) {
	select {
	case c.connPool <- conn:
	default:
		conn.Close()
	}
}

// Send performs the broker round trip for cmd on its own goroutine and
// delivers the result on the returned channel, matching the IoClient
// contract (spec §6) that callers never block waiting on the wire.
func (c *Client) Send(ctx context.Context, cmd model.IoCommand) (<-chan model.IoResult, error) {
	ch := make(chan model.IoResult, 1)

	go func() {
		defer close(ch)
		ch <- c.roundTrip(cmd)
	}()

	return ch, nil
}

func (c *Client) roundTrip(cmd model.IoCommand) model.IoResult {
	conn, err := c.getConn()
	if err != nil {
		return model.IoResult{Command: cmd, Kind: model.IoFailAck, Err: fmt.Errorf("mover connect: %w", err)}
	}
	defer c.releaseConn(conn)

	op := OpCopy
	if cmd.Kind == model.IoTouch {
		op = OpTouch
	}
	req := &request{Op: op, ID: []byte(cmd.ID), Src: []byte(cmd.Src), Dst: []byte(cmd.Dst)}
	if err := req.writeTo(conn); err != nil {
		return model.IoResult{Command: cmd, Kind: model.IoFailAck, Err: fmt.Errorf("mover write: %w", err)}
	}

	resp, err := readResponse(conn)
	if err != nil {
		return model.IoResult{Command: cmd, Kind: model.IoFailAck, Err: fmt.Errorf("mover read: %w", err)}
	}

	switch resp.Status {
	case StatusOK:
		return model.IoResult{Command: cmd, Kind: model.IoSuccess}
	case StatusReadForbidden:
		return model.IoResult{
			Command:       cmd,
			Kind:          model.IoReadForbiddenFailure,
			ForbiddenPath: string(resp.ForbiddenPath),
			Err:           fmt.Errorf("read forbidden: %s", resp.ForbiddenPath),
		}
	default:
		return model.IoResult{Command: cmd, Kind: model.IoFailAck, Err: fmt.Errorf("mover failure: %s", resp.Message)}
	}
}

// Close drains and closes every pooled connection.
func (c *Client) Close() error {
	close(c.connPool)
	for conn := range c.connPool {
		conn.Close()
	}
	return nil
}
