// Package memory is a scriptable in-memory IoClient test double: callers
// install one Responder function that computes each command's model.IoResult
// (the default always succeeds) so Cache-Hit Copy FSM scenario tests can drive exact response sequences
// without a real mover socket (SPEC_FULL.md §10.4/§8).
package memory

import (
	"context"
	"sync"

	"github.com/lyzr/workflow-engine/engine/ioclient"
	"github.com/lyzr/workflow-engine/engine/model"
)

var _ ioclient.IoClient = (*Client)(nil)

// Responder computes a result for a dispatched command.
type Responder func(cmd model.IoCommand) model.IoResult

// Client is an in-process IoClient driven entirely by a Responder.
type Client struct {
	mu        sync.Mutex
	respond   Responder
	sent      []model.IoCommand
	closed    bool
}

// New creates a Client that always succeeds unless a different Responder is
// installed via WithResponder.
func New() *Client {
	return &Client{respond: func(cmd model.IoCommand) model.IoResult {
		return model.IoResult{Command: cmd, Kind: model.IoSuccess}
	}}
}

// WithResponder installs a custom Responder, e.g. to script a forbidden
// response on the second call for a given ID.
func (c *Client) WithResponder(r Responder) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.respond = r
	return c
}

// Sent returns every command dispatched so far, in order.
func (c *Client) Sent() []model.IoCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.IoCommand, len(c.sent))
	copy(out, c.sent)
	return out
}

// Send delivers the Responder's result asynchronously, same as a real broker.
func (c *Client) Send(ctx context.Context, cmd model.IoCommand) (<-chan model.IoResult, error) {
	c.mu.Lock()
	c.sent = append(c.sent, cmd)
	respond := c.respond
	c.mu.Unlock()

	ch := make(chan model.IoResult, 1)
	ch <- respond(cmd)
	close(ch)
	return ch, nil
}

// Close marks the client closed; idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
