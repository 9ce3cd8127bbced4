// Package chat runs the assistant conversation of a page.
package chat

import (
	"sync"

	"github.com/BTreeMap/FarmGenius/internal/models"
)

// Conversation is an append-only list of turns.
type Conversation struct {
	mu     sync.Mutex
	turns  []models.ChatTurn
	closed bool
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds a turn. It fails with models.ErrPageClosed after Close.
func (c *Conversation) Append(turn models.ChatTurn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ErrPageClosed
	}
	c.turns = append(c.turns, turn)
	return nil
}

// Turns returns a copy of every turn in order.
func (c *Conversation) Turns() []models.ChatTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatTurn(nil), c.turns...)
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Close stops the conversation from growing.
func (c *Conversation) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Closed reports whether Close was called.
func (c *Conversation) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
