package policies

import (
	"context"
	"sync"

	domainnotification "skillswap/internal/domain/notification"
)

// Notice is a notification a command wants delivered once it has committed.
type Notice struct {
	RecipientID string
	Kind        domainnotification.Kind
	Title       string
	Body        string
	RefID       string
}

// Notifier delivers notices. Implementations are best-effort; callers log
// and drop their errors.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

type NotifierFunc func(ctx context.Context, notice Notice) error

func (f NotifierFunc) Notify(ctx context.Context, notice Notice) error {
	return f(ctx, notice)
}

// Collector buffers notices raised during one dispatch.
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func (c *Collector) Add(n Notice) {
	c.mu.Lock()
	c.notices = append(c.notices, n)
	c.mu.Unlock()
}

func (c *Collector) Drain() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}

type collectorKey struct{}

func ContextWithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, collectorKey{}, c)
}

func CollectorFromContext(ctx context.Context) (*Collector, bool) {
	c, ok := ctx.Value(collectorKey{}).(*Collector)
	return c, ok && c != nil
}

// Defer queues notices for delivery after the surrounding transaction
// commits. Without a collector in ctx the notices are dropped and false is
// returned.
func Defer(ctx context.Context, notices ...Notice) bool {
	c, ok := CollectorFromContext(ctx)
	if !ok {
		return false
	}
	for _, n := range notices {
		if n.RecipientID == "" {
			continue
		}
		c.Add(n)
	}
	return true
}
