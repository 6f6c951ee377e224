package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/droidsweep/backend/internal/logging"
	"github.com/droidsweep/backend/internal/shared/id"
)

// ErrCancelled is reported by a stream that was cancelled mid-flight
var ErrCancelled = errors.New("stream cancelled")

// DefaultDelay is the baseline inter-token pause. Callers pick their own
// delay; zero or negative disables pacing entirely.
const DefaultDelay = 30 * time.Millisecond

// MutateFunc applies one mutation to the target message. content is the
// full text revealed so far; done marks the streaming=false transition.
// The stream is the sole writer of its message for its whole run, so the
// callback owner only needs to apply, not coordinate.
type MutateFunc func(content string, done bool)

// Controller starts streams and enforces the single-active-stream invariant
type Controller struct {
	log    *logging.Logger
	mu     sync.Mutex
	active *Stream
}

// NewController creates a stream controller
func NewController(log *logging.Logger) *Controller {
	return &Controller{
		log: log.Named("stream"),
	}
}

// Stream is a handle to one in-flight progressive reveal
type Stream struct {
	msgID      id.MessageID
	cancel     context.CancelFunc
	cancelOnce sync.Once
	done       chan struct{}

	mu  sync.Mutex
	err error
}

// MessageID returns the ID of the message this stream writes
func (st *Stream) MessageID() id.MessageID {
	return st.msgID
}

// Done is closed when the stream has completed or been cancelled
func (st *Stream) Done() <-chan struct{} {
	return st.done
}

// Err returns ErrCancelled after a cancel, nil after a clean completion.
// Only meaningful once Done is closed.
func (st *Stream) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// Cancel stops the stream. Idempotent. No mutator call is made after the
// cancel takes effect except the single terminal one that flips the message
// out of its streaming state with content as-is.
func (st *Stream) Cancel() {
	st.cancelOnce.Do(st.cancel)
}

// Start begins revealing fullText into the message identified by msgID.
// Any stream already active on this controller is cancelled and drained
// first. delay <= 0 applies every token synchronously before Start returns,
// which keeps tests deterministic.
func (c *Controller) Start(fullText string, msgID id.MessageID, mutate MutateFunc, delay time.Duration) *Stream {
	c.CancelActive()

	ctx, cancel := context.WithCancel(context.Background())
	st := &Stream{
		msgID:  msgID,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	c.active = st
	c.mu.Unlock()

	if delay <= 0 {
		c.run(ctx, st, fullText, mutate, 0)
	} else {
		go c.run(ctx, st, fullText, mutate, delay)
	}

	return st
}

// CancelActive cancels and drains the active stream, if any
func (c *Controller) CancelActive() {
	c.mu.Lock()
	prev := c.active
	c.mu.Unlock()

	if prev != nil {
		prev.Cancel()
		<-prev.Done()
	}
}

// run applies tokens until exhaustion or cancellation
func (c *Controller) run(ctx context.Context, st *Stream, fullText string, mutate MutateFunc, delay time.Duration) {
	defer c.finish(st)

	tokens := strings.Fields(fullText)

	// Empty reply: a single mutation marks the message complete
	if len(tokens) == 0 {
		mutate("", true)
		return
	}

	var revealed strings.Builder
	for i, token := range tokens {
		if i == 0 {
			select {
			case <-ctx.Done():
				st.fail(ErrCancelled)
				mutate("", true)
				return
			default:
			}
		}
		if i > 0 {
			// Suspension point. Cancellation is checked before the resume
			// applies another token.
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				st.fail(ErrCancelled)
				mutate(revealed.String(), true)
				c.log.Debug("stream cancelled",
					zap.String("message_id", st.msgID.String()),
					zap.Int("tokens_applied", i),
				)
				return
			case <-timer.C:
			}
			revealed.WriteByte(' ')
		}

		revealed.WriteString(token)
		mutate(revealed.String(), i == len(tokens)-1)
	}
}

// fail records the terminal error
func (st *Stream) fail(err error) {
	st.mu.Lock()
	st.err = err
	st.mu.Unlock()
}

// finish releases the active slot and signals completion
func (c *Controller) finish(st *Stream) {
	c.mu.Lock()
	if c.active == st {
		c.active = nil
	}
	c.mu.Unlock()

	close(st.done)
}
