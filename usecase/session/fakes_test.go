package session

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/repository/memory"
	"github.com/fastygo/acreage/usecase"
)

type fakeProvider struct {
	mu           sync.Mutex
	listener     usecase.AuthStateListener
	subscribeErr error
	unsubscribed int
	calls        map[string]int
	hydrated     []*domain.Session

	signUp        func(ctx context.Context, email, password string, metadata map[string]any) (*domain.AuthResponse, error)
	signIn        func(ctx context.Context, email, password string) (*domain.AuthResponse, error)
	signOut       func(ctx context.Context) error
	updateUser    func(ctx context.Context, patch map[string]any) (*domain.User, error)
	resetPassword func(ctx context.Context, email, redirectTo string) error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{calls: make(map[string]int)}
}

func (p *fakeProvider) record(name string) {
	p.mu.Lock()
	p.calls[name]++
	p.mu.Unlock()
}

func (p *fakeProvider) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *fakeProvider) remoteCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for name, n := range p.calls {
		if name != "SetSession" {
			total += n
		}
	}
	return total
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.AuthResponse, error) {
	p.record("SignUp")
	if p.signUp != nil {
		return p.signUp(ctx, email, password, metadata)
	}
	return &domain.AuthResponse{User: &domain.User{ID: "u-new", Email: email, Metadata: metadata}}, nil
}

func (p *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	p.record("SignIn")
	if p.signIn != nil {
		return p.signIn(ctx, email, password)
	}
	s := testSession("u-1", email, time.Now().Add(time.Hour))
	return &domain.AuthResponse{User: s.User, Session: s}, nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.record("SignOut")
	if p.signOut != nil {
		return p.signOut(ctx)
	}
	return nil
}

func (p *fakeProvider) UpdateUser(ctx context.Context, patch map[string]any) (*domain.User, error) {
	p.record("UpdateUser")
	if p.updateUser != nil {
		return p.updateUser(ctx, patch)
	}
	return &domain.User{ID: "u-1", Email: "a@x.com", Metadata: patch}, nil
}

func (p *fakeProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	p.record("ResetPassword")
	if p.resetPassword != nil {
		return p.resetPassword(ctx, email, redirectTo)
	}
	return nil
}

func (p *fakeProvider) SetSession(_ context.Context, session *domain.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["SetSession"]++
	p.hydrated = append(p.hydrated, session)
	return nil
}

func (p *fakeProvider) OnAuthStateChange(listener usecase.AuthStateListener) (usecase.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscribeErr != nil {
		return nil, p.subscribeErr
	}
	p.listener = listener
	return usecase.SubscriptionFunc(func() {
		p.mu.Lock()
		p.unsubscribed++
		p.mu.Unlock()
	}), nil
}

// emit invokes the captured listener even after unsubscribe, the way a late
// callback would.
func (p *fakeProvider) emit(event domain.AuthEvent, session *domain.Session) {
	p.mu.Lock()
	l := p.listener
	p.mu.Unlock()
	if l != nil {
		l(event, session)
	}
}

type fakeStore struct {
	*memory.KeyValueRepository

	mu        sync.Mutex
	getErr    error
	setErr    error
	removeErr error
	getHook   func()
	sets      int
	removes   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{KeyValueRepository: memory.NewKeyValueRepository()}
}

func (s *fakeStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	hook, err := s.getHook, s.getErr
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	// The value is read before the hook runs, so a blocked hook models a
	// read that has completed but not yet been delivered.
	value, err := s.KeyValueRepository.Get(ctx, key)
	if hook != nil {
		hook()
	}
	return value, err
}

func (s *fakeStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.sets++
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.KeyValueRepository.Set(ctx, key, value)
}

func (s *fakeStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	s.removes++
	err := s.removeErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.KeyValueRepository.Remove(ctx, key)
}

func (s *fakeStore) writes() (sets, removes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets, s.removes
}

type waitRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *waitRecorder) wait(_ context.Context, d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waits = append(w.waits, d)
	return nil
}

func (w *waitRecorder) recorded() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.waits...)
}

type countingRecorder struct {
	mu          sync.Mutex
	attempts    map[string]int
	results     map[string]int
	transitions []domain.AuthEvent
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{attempts: make(map[string]int), results: make(map[string]int)}
}

func (r *countingRecorder) ObserveAttempt(op string, _ error) {
	r.mu.Lock()
	r.attempts[op]++
	r.mu.Unlock()
}

func (r *countingRecorder) ObserveResult(op string, _ error) {
	r.mu.Lock()
	r.results[op]++
	r.mu.Unlock()
}

func (r *countingRecorder) ObserveTransition(event domain.AuthEvent) {
	r.mu.Lock()
	r.transitions = append(r.transitions, event)
	r.mu.Unlock()
}

func testSession(userID, email string, expiresAt time.Time) *domain.Session {
	return &domain.Session{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
		User:         &domain.User{ID: userID, Email: email},
	}
}
