package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/gardencoach/pkg/provider/live"
	livemock "github.com/MrWong99/gardencoach/pkg/provider/live/mock"
)

func TestLiveFallback_PrimaryConnects(t *testing.T) {
	primary := &livemock.Provider{ProviderName: "gemini-live"}
	secondary := &livemock.Provider{ProviderName: "genai-live"}

	fb := NewLiveFallback(primary, FallbackConfig{})
	fb.AddFallback(secondary)

	if fb.Name() != "gemini-live" {
		t.Errorf("Name() = %q, want gemini-live", fb.Name())
	}
	sess, err := fb.Connect(context.Background(), live.SessionConfig{Voice: "Kore"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if sess != primary.LastSession() {
		t.Error("session did not come from the primary")
	}
	if secondary.ConnectCount() != 0 {
		t.Errorf("secondary connects = %d, want 0", secondary.ConnectCount())
	}
}

func TestLiveFallback_FailsOverOnHandshakeError(t *testing.T) {
	primary := &livemock.Provider{ProviderName: "gemini-live", ConnectErr: errors.New("setup rejected")}
	secondary := &livemock.Provider{ProviderName: "genai-live"}

	fb := NewLiveFallback(primary, FallbackConfig{})
	fb.AddFallback(secondary)

	sess, err := fb.Connect(context.Background(), live.SessionConfig{Voice: "Puck"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if sess != secondary.LastSession() {
		t.Error("session did not come from the fallback")
	}
	if got := secondary.ConnectCalls[0].Cfg.Voice; got != "Puck" {
		t.Errorf("fallback voice = %q, want Puck", got)
	}
}

func TestLiveFallback_StopWhileConnectingDoesNotFailOver(t *testing.T) {
	primary := &livemock.Provider{ProviderName: "gemini-live", Gate: make(chan struct{})}
	secondary := &livemock.Provider{ProviderName: "genai-live"}

	fb := NewLiveFallback(primary, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	fb.AddFallback(secondary)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := fb.Connect(ctx, live.SessionConfig{})
		done <- err
	}()
	for primary.ConnectCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Connect = %v, want context.Canceled", err)
	}
	if secondary.ConnectCount() != 0 {
		t.Error("a cancelled connect must not fail over")
	}
}

func TestLiveFallback_AllFail(t *testing.T) {
	primary := &livemock.Provider{ProviderName: "gemini-live", ConnectErr: errors.New("dial refused")}
	fb := NewLiveFallback(primary, FallbackConfig{})

	if _, err := fb.Connect(context.Background(), live.SessionConfig{}); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("Connect = %v, want ErrAllFailed", err)
	}
}
