package decision

import (
	"context"
	"github.com/rs/zerolog/log"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/pkg/memory/buffer"
	"go-omnicontrol/pkg/prompts"
	"go-omnicontrol/pkg/template"
	"golang.org/x/time/rate"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Prompt is one user turn: the frame plus the two text parts.
type Prompt struct {
	Image     []byte
	MIMEType  string
	Objective string
	Elements  string
}

// Oracle is a stateful multimodal conversation. Send appends the prompt and the reply to the
// conversation; Reset starts an empty one with the same instructions.
type Oracle interface {
	Send(ctx context.Context, p Prompt) (string, error)
	Reset()
}

type Client struct {
	mu      sync.Mutex
	oracle  Oracle
	limiter *rate.Limiter
	memory  buffer.Memories
	// pending marks a Reset requested while a call held mu.
	pending atomic.Bool
}

type Option func(*Client)

// WithRequestsPerMinute throttles calls to the model. Zero or less disables throttling.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

func NewClient(oracle Oracle, opts ...Option) *Client {
	c := &Client{
		oracle:  oracle,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type objectiveInput struct {
	Objective string
}

type elementsInput struct {
	Elements string
}

// Decide sends the frame, objective, and detected elements as the next turn of the conversation
// and decodes the chosen action.
func (c *Client) Decide(ctx context.Context, frame *desktop.Frame, elements, objective string) (Action, error) {
	if frame == nil {
		return Action{}, &Error{Reason: "no frame"}
	}
	objectiveText, err := template.Parse(prompts.Objective, objectiveInput{Objective: objective})
	if err != nil {
		return Action{}, &Error{Reason: "render objective", Err: err}
	}
	if strings.TrimSpace(elements) == "" {
		elements = "(none)"
	}
	elementsText, err := template.Parse(prompts.DetectedElements, elementsInput{Elements: elements})
	if err != nil {
		return Action{}, &Error{Reason: "render elements", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending.Swap(false) {
		c.reset()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Action{}, &Error{Reason: "rate limit", Err: err}
	}

	reply, err := c.oracle.Send(ctx, Prompt{
		Image:     frame.PNG(),
		MIMEType:  desktop.MIMEType,
		Objective: objectiveText,
		Elements:  elementsText,
	})
	if err != nil {
		return Action{}, &Error{Reason: "call", Err: err}
	}
	c.memory.Add(buffer.Memory{Question: objectiveText + "\n" + elementsText, Answer: reply})
	log.Debug().Str("reply", reply).Int("turns", c.memory.Len()).Msg("decision model replied")

	return ParseReply(reply)
}

// Reset drops the conversation so the next Decide starts from the instructions alone. It never
// waits for a call in flight; the reset is then applied before the next Decide.
func (c *Client) Reset() {
	if !c.mu.TryLock() {
		c.pending.Store(true)
		return
	}
	defer c.mu.Unlock()
	c.pending.Store(false)
	c.reset()
}

func (c *Client) reset() {
	c.oracle.Reset()
	c.memory.Clear()
}

// Transcript returns every exchanged turn of the current conversation.
func (c *Client) Transcript() []buffer.Memory {
	if c.pending.Load() {
		return nil
	}
	return c.memory.Snapshot()
}
