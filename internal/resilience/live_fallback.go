package resilience

import (
	"context"

	"github.com/MrWong99/gardencoach/pkg/provider/live"
)

// LiveFallback implements [live.Provider] with failover at connect time. Only
// the handshake is covered: once a session is open, its failures end the
// session and are reported by the caller.
type LiveFallback struct {
	group *FallbackGroup[live.Provider]
}

var _ live.Provider = (*LiveFallback)(nil)

// NewLiveFallback creates a [LiveFallback] preferring primary.
func NewLiveFallback(primary live.Provider, cfg FallbackConfig) *LiveFallback {
	return &LiveFallback{group: NewFallbackGroup(primary, primary.Name(), cfg)}
}

// AddFallback registers an additional live provider, named after its Name.
func (f *LiveFallback) AddFallback(provider live.Provider) {
	f.group.AddFallback(provider.Name(), provider)
}

// Name returns the primary provider's name.
func (f *LiveFallback) Name() string { return f.group.Primary().Name() }

// Connect opens a session on the first provider that completes the handshake.
func (f *LiveFallback) Connect(ctx context.Context, cfg live.SessionConfig) (live.Session, error) {
	return ExecuteWithResult(ctx, f.group, func(p live.Provider) (live.Session, error) {
		return p.Connect(ctx, cfg)
	})
}

// Check reports whether any provider can currently be tried.
func (f *LiveFallback) Check(ctx context.Context) error { return f.group.Check(ctx) }
