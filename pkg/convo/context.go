package convo

import "sync"

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a conversation transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

const (
	defaultMaxHistory     = 100
	defaultPruneThreshold = 80
)

// Context is a bounded conversation transcript. When the non-system message
// count passes MaxHistory, the oldest non-system messages are dropped down to
// PruneThreshold; system messages always survive.
type Context struct {
	mu             sync.Mutex
	messages       []Message
	maxHistory     int
	pruneThreshold int
}

func NewContext() *Context {
	return &Context{
		maxHistory:     defaultMaxHistory,
		pruneThreshold: defaultPruneThreshold,
	}
}

// NewContextWithLimits overrides the pruning bounds; zero values keep the
// defaults.
func NewContextWithLimits(maxHistory, pruneThreshold int) *Context {
	c := NewContext()
	if maxHistory > 0 {
		c.maxHistory = maxHistory
	}
	if pruneThreshold > 0 && pruneThreshold < c.maxHistory {
		c.pruneThreshold = pruneThreshold
	}
	return c
}

// Append adds a message and prunes if the transcript grew past the limit.
func (c *Context) Append(role Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: role, Content: content})
	c.prune()
}

// Messages returns a copy of the transcript.
func (c *Context) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// SetMessages replaces the transcript, for snapshot restore.
func (c *Context) SetMessages(msgs []Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make([]Message, len(msgs))
	copy(c.messages, msgs)
	c.prune()
}

// Len returns the current transcript length.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *Context) prune() {
	nonSystem := 0
	for _, m := range c.messages {
		if m.Role != RoleSystem {
			nonSystem++
		}
	}
	if nonSystem <= c.maxHistory {
		return
	}
	drop := nonSystem - c.pruneThreshold
	kept := c.messages[:0]
	for _, m := range c.messages {
		if drop > 0 && m.Role != RoleSystem {
			drop--
			continue
		}
		kept = append(kept, m)
	}
	c.messages = kept
}
