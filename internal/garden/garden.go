// Package garden keeps a gardener's seed balance and the rewards layered on
// top of it: the flower's growth level, palette purchases and the community
// leaderboard.
package garden

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/gardencoach/internal/observe"
)

var (
	// ErrInsufficientSeeds is returned when a purchase costs more than the
	// current balance.
	ErrInsufficientSeeds = errors.New("garden: insufficient seeds")

	// ErrUnknownReason is returned by [Garden.Award] for a reason without a
	// reward amount.
	ErrUnknownReason = errors.New("garden: unknown reward reason")
)

// Reason identifies why seeds were granted or spent.
type Reason string

const (
	ReasonLogin         Reason = "login"
	ReasonRegister      Reason = "register"
	ReasonMindfulBreath Reason = "mindful_breath"
	ReasonAdminUpload   Reason = "admin_upload"
	ReasonVideoLike     Reason = "video_like"
	ReasonInternalShare Reason = "internal_share"
	ReasonLinkCopied    Reason = "link_copied"
	ReasonSession       Reason = "coaching_session"

	// ReasonPalette marks seeds spent on a flower palette.
	ReasonPalette Reason = "palette"
)

var rewards = map[Reason]struct {
	amount int
	label  string
}{
	ReasonLogin:         {10, "Bienvenido de vuelta"},
	ReasonRegister:      {15, "Semilla Plantada"},
	ReasonMindfulBreath: {25, "Cultivo Consciente"},
	ReasonAdminUpload:   {150, "Carga de Datos"},
	ReasonVideoLike:     {20, "Semillas por Cultivo"},
	ReasonInternalShare: {30, "Polinización Interna"},
	ReasonLinkCopied:    {10, "Enlace para Redes Copiado"},
	ReasonSession:       {50, "Sesión de Coaching Completada"},
	ReasonPalette:       {0, "Esencia Evolucionada"},
}

// Amount returns the seeds granted for r, or 0 for spending and unknown
// reasons.
func (r Reason) Amount() int { return rewards[r].amount }

// Label returns the human-readable notification text for r.
func (r Reason) Label() string {
	if rw, ok := rewards[r]; ok {
		return rw.label
	}
	return string(r)
}

// Award describes one balance change. Amount is negative for purchases.
type Award struct {
	Amount  int
	Reason  Reason
	Balance int
}

// String renders the award as a notification line, e.g. "+25: Cultivo Consciente".
func (a Award) String() string {
	return fmt.Sprintf("%+d: %s", a.Amount, a.Reason.Label())
}

// Option configures a [Garden].
type Option func(*Garden)

// WithStartingSeeds sets the initial balance. Negative values are ignored.
func WithStartingSeeds(n int) Option {
	return func(g *Garden) {
		if n > 0 {
			g.seeds = n
		}
	}
}

// WithListener registers fn to receive every balance change in order.
func WithListener(fn func(Award)) Option {
	return func(g *Garden) { g.listener = fn }
}

// WithMetrics sets the metric instruments. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Garden) {
		if m != nil {
			g.metrics = m
		}
	}
}

// Garden is one gardener's seed ledger. It is safe for concurrent use.
type Garden struct {
	// notifyMu serialises listener calls so awards are observed in balance
	// order. It is always taken before mu.
	notifyMu sync.Mutex

	mu      sync.Mutex
	seeds   int
	palette string
	liked   map[string]struct{}

	listener func(Award)
	metrics  *observe.Metrics
}

// New creates a Garden with the classic palette selected.
func New(opts ...Option) *Garden {
	g := &Garden{
		palette: DefaultPalette,
		liked:   make(map[string]struct{}),
	}
	for _, o := range opts {
		o(g)
	}
	if g.metrics == nil {
		g.metrics = observe.DefaultMetrics()
	}
	return g
}

// Seeds returns the current balance.
func (g *Garden) Seeds() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seeds
}

// Level returns the flower level for the current balance.
func (g *Garden) Level() int { return FlowerLevel(g.Seeds()) }

// Palette returns the selected palette ID.
func (g *Garden) Palette() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.palette
}

// Award grants the reward for reason and returns the resulting change.
func (g *Garden) Award(ctx context.Context, reason Reason) (Award, error) {
	amount := reason.Amount()
	if amount <= 0 {
		return Award{}, fmt.Errorf("%w: %q", ErrUnknownReason, reason)
	}
	return g.apply(ctx, reason, amount, nil)
}

// LikeVideo grants the like reward the first time videoID is liked. The
// second result reports whether seeds were granted.
func (g *Garden) LikeVideo(ctx context.Context, videoID string) (Award, bool) {
	var first bool
	a, _ := g.apply(ctx, ReasonVideoLike, ReasonVideoLike.Amount(), func() error {
		if _, ok := g.liked[videoID]; ok {
			return errAlreadyLiked
		}
		g.liked[videoID] = struct{}{}
		first = true
		return nil
	})
	return a, first
}

var errAlreadyLiked = errors.New("garden: video already liked")

// Liked reports whether videoID has been liked.
func (g *Garden) Liked(videoID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.liked[videoID]
	return ok
}

// BuyPalette spends cost seeds to select the palette id. Only the classic
// palette is available below level 5.
func (g *Garden) BuyPalette(ctx context.Context, id string, cost int) error {
	if _, ok := LookupPalette(id); !ok {
		return fmt.Errorf("garden: buy palette: %w: %q", ErrUnknownPalette, id)
	}
	if cost < 0 {
		return fmt.Errorf("garden: buy palette: negative cost %d", cost)
	}
	_, err := g.apply(ctx, ReasonPalette, -cost, func() error {
		if id != DefaultPalette && FlowerLevel(g.seeds) < MaxLevel {
			return ErrPaletteLocked
		}
		if g.seeds < cost {
			return ErrInsufficientSeeds
		}
		g.palette = id
		return nil
	})
	if err != nil {
		return fmt.Errorf("garden: buy palette %q: %w", id, err)
	}
	return nil
}

// apply changes the balance by delta after check passes. check runs with mu
// held.
func (g *Garden) apply(ctx context.Context, reason Reason, delta int, check func() error) (Award, error) {
	g.notifyMu.Lock()
	defer g.notifyMu.Unlock()

	g.mu.Lock()
	if check != nil {
		if err := check(); err != nil {
			g.mu.Unlock()
			return Award{}, err
		}
	}
	g.seeds += delta
	a := Award{Amount: delta, Reason: reason, Balance: g.seeds}
	g.mu.Unlock()

	if delta > 0 {
		g.metrics.RecordSeeds(ctx, string(reason), delta)
	}
	observe.Logger(ctx).Debug("garden: balance changed", "reason", reason, "amount", delta, "balance", a.Balance)
	if g.listener != nil {
		g.listener(a)
	}
	return a, nil
}
