// Package mock provides test doubles for the live package interfaces.
//
// Use Provider to verify Connect calls and hand out a controlled Session. Use
// Session to push inbound model messages and inspect the frames the caller
// sent.
//
// Example:
//
//	sess := mock.NewSession()
//	p := &mock.Provider{Session: sess}
//	s, _ := p.Connect(ctx, cfg)
//	sess.Push(live.Message{Audio: pcm, SampleRate: 24000})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/gardencoach/pkg/audio"
	"github.com/MrWong99/gardencoach/pkg/provider/live"
)

var _ live.Provider = (*Provider)(nil)
var _ live.Session = (*Session)(nil)

// ConnectCall records a single invocation of Provider.Connect.
type ConnectCall struct {
	Ctx context.Context
	Cfg live.SessionConfig
}

// Provider is a mock implementation of live.Provider.
type Provider struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// Session is returned by Connect. If nil, a fresh Session is created per
	// call and appended to Sessions.
	Session *Session

	// ConnectErr, if non-nil, is returned as the error from Connect.
	ConnectErr error

	// Gate, if non-nil, blocks Connect until it is closed or ctx is done.
	Gate chan struct{}

	// ConnectCalls records every call to Connect in order.
	ConnectCalls []ConnectCall

	// Sessions records every session handed out.
	Sessions []*Session
}

// Name returns ProviderName or "mock".
func (p *Provider) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Connect records the call, honours Gate, and returns Session or ConnectErr.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.Session, error) {
	p.mu.Lock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{Ctx: ctx, Cfg: cfg})
	gate := p.Gate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	s := p.Session
	if s == nil {
		s = NewSession()
	}
	p.Sessions = append(p.Sessions, s)
	return s, nil
}

// ConnectCount returns the number of Connect calls. Thread-safe.
func (p *Provider) ConnectCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ConnectCalls)
}

// LastSession returns the most recently handed out session, or nil.
func (p *Provider) LastSession() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Sessions) == 0 {
		return nil
	}
	return p.Sessions[len(p.Sessions)-1]
}

// Session is a mock implementation of live.Session.
type Session struct {
	mu sync.Mutex

	// SessionID is returned by ID.
	SessionID string

	// MessagesCh is the channel returned by Messages.
	MessagesCh chan live.Message

	// SendErr, if non-nil, is returned by every Send call.
	SendErr error

	// SendBlock, if non-nil, makes Send wait until it is closed or ctx is
	// done.
	SendBlock chan struct{}

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// Sent records a copy of every frame passed to Send.
	Sent []audio.AudioFrame

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	err     error
	endOnce sync.Once
	sentCh  chan struct{}
}

// NewSession returns a Session with a buffered messages channel.
func NewSession() *Session {
	return &Session{
		SessionID:  "mock-session",
		MessagesCh: make(chan live.Message, 64),
		sentCh:     make(chan struct{}, 1024),
	}
}

// ID returns SessionID.
func (s *Session) ID() string { return s.SessionID }

// Send records the frame and returns SendErr.
func (s *Session) Send(ctx context.Context, frame audio.AudioFrame) error {
	s.mu.Lock()
	block := s.SendBlock
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cp := frame
	cp.Data = append([]byte(nil), frame.Data...)
	s.Sent = append(s.Sent, cp)
	if s.sentCh != nil {
		select {
		case s.sentCh <- struct{}{}:
		default:
		}
	}
	return s.SendErr
}

// SentFrames returns a copy of the recorded frames. Thread-safe.
func (s *Session) SentFrames() []audio.AudioFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audio.AudioFrame, len(s.Sent))
	copy(out, s.Sent)
	return out
}

// SentSignal receives one value per successful Send; tests use it to wait for
// frames without sleeping.
func (s *Session) SentSignal() <-chan struct{} { return s.sentCh }

// Messages returns MessagesCh.
func (s *Session) Messages() <-chan live.Message { return s.MessagesCh }

// Push delivers m on the messages channel.
func (s *Session) Push(m live.Message) { s.MessagesCh <- m }

// End simulates the remote side ending the session with err (nil for a clean
// close). It is safe to call together with Close.
func (s *Session) End(err error) {
	s.endOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.MessagesCh)
	})
}

// Err returns the error passed to End.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close records the call, ends the session cleanly, and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	s.CloseCallCount++
	err := s.CloseErr
	s.mu.Unlock()
	s.End(nil)
	return err
}

// Closes returns CloseCallCount. Thread-safe.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCallCount
}
