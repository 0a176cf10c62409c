// Package session holds the client side of authentication: who is signed in,
// the bearer token, and the transitions between signed out and signed in.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"volunteerhub/api/internal/apiclient"
	"volunteerhub/api/internal/models"
)

var (
	ErrBusy               = errors.New("session: a login or registration is already in progress")
	ErrClosed             = errors.New("session: store closed")
	ErrNotAuthenticated   = errors.New("session: not signed in")
	ErrLoginFailed        = errors.New("login failed, please try again")
	ErrRegistrationFailed = errors.New("registration failed, please try again")

	errSessionReset = errors.New("session was reset while the request was in flight")
)

// opError carries a fixed user-facing message while keeping the cause
// reachable through errors.Unwrap.
type opError struct {
	kind  error
	cause error
}

func (e *opError) Error() string        { return e.kind.Error() }
func (e *opError) Is(target error) bool { return target == e.kind }
func (e *opError) Unwrap() error        { return e.cause }

type State int

const (
	Unauthenticated State = iota
	Loading
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Authenticator is the remote side of the session. *apiclient.Client
// implements it.
type Authenticator interface {
	Register(ctx context.Context, name, email, password string) (models.PublicUser, error)
	Login(ctx context.Context, email, password string) (apiclient.LoginResult, error)
	Me(ctx context.Context, token string) (models.PublicUser, error)
}

// Navigator replaces the current screen.
type Navigator interface {
	Replace(route string)
}

type NavigatorFunc func(route string)

func (f NavigatorFunc) Replace(route string) { f(route) }

// Snapshot is a point-in-time view of the session. It never carries the token.
type Snapshot struct {
	State State
	User  models.PublicUser
}

func (s Snapshot) Authenticated() bool {
	return s.State == Authenticated
}

type Option func(*Store)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// Store is one client session. Login and Register are single-flight: a call
// made while another is in progress fails with ErrBusy.
type Store struct {
	api Authenticator
	nav Navigator
	log zerolog.Logger

	mu         sync.Mutex
	state      State
	user       models.PublicUser
	token      string
	generation uint64
	closed     bool
	nextSub    int
	subs       map[int]func(Snapshot)

	// notifyMu orders subscriber callbacks across transitions.
	notifyMu sync.Mutex
}

func New(api Authenticator, nav Navigator, opts ...Option) *Store {
	s := &Store{
		api:  api,
		nav:  nav,
		log:  zerolog.Nop(),
		subs: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Token returns the bearer token while signed in.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.state == Authenticated
}

// Subscribe registers fn to receive a snapshot after every transition.
// Callbacks run synchronously and must not call Login, Register or Logout.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) Login(ctx context.Context, email, password string) error {
	prev, gen, err := s.begin()
	if err != nil {
		return err
	}

	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.finish(gen, prev)
		s.log.Warn().Err(err).Msg("login failed")
		return &opError{kind: ErrLoginFailed, cause: err}
	}

	next := sessionState{snap: Snapshot{State: Authenticated, User: result.User}, token: result.Token}
	if !s.finish(gen, next) {
		return &opError{kind: ErrLoginFailed, cause: errSessionReset}
	}
	s.log.Info().Str("user_id", result.User.ID).Msg("signed in")
	return nil
}

// Register creates an account. It leaves the session as it was: the new user
// still has to log in.
func (s *Store) Register(ctx context.Context, name, email, password string) (models.PublicUser, error) {
	prev, gen, err := s.begin()
	if err != nil {
		return models.PublicUser{}, err
	}

	user, err := s.api.Register(ctx, name, email, password)
	s.finish(gen, prev)
	if err != nil {
		s.log.Warn().Err(err).Msg("registration failed")
		return models.PublicUser{}, &opError{kind: ErrRegistrationFailed, cause: err}
	}
	return user, nil
}

// Logout forgets the user and token and sends the app to the login screen.
// A login still in flight is discarded when it completes.
func (s *Store) Logout() {
	s.mu.Lock()
	s.generation++
	s.state = Unauthenticated
	s.user = models.PublicUser{}
	s.token = ""
	s.notifyAndUnlock()

	if s.nav != nil {
		s.nav.Replace(LoginRoute)
	}
}

// Profile fetches the signed-in user from the server and refreshes the
// cached copy.
func (s *Store) Profile(ctx context.Context) (models.PublicUser, error) {
	s.mu.Lock()
	if s.state != Authenticated {
		s.mu.Unlock()
		return models.PublicUser{}, ErrNotAuthenticated
	}
	token, gen := s.token, s.generation
	s.mu.Unlock()

	user, err := s.api.Me(ctx, token)
	if err != nil {
		return models.PublicUser{}, err
	}

	s.mu.Lock()
	if s.generation != gen || s.state != Authenticated {
		s.mu.Unlock()
		return user, nil
	}
	s.user = user
	s.notifyAndUnlock()
	return user, nil
}

// Close drops subscribers and the held credentials. Further Login and
// Register calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.generation++
	s.state = Unauthenticated
	s.user = models.PublicUser{}
	s.token = ""
	s.subs = make(map[int]func(Snapshot))
	return nil
}

type sessionState struct {
	snap  Snapshot
	token string
}

func (s *Store) begin() (sessionState, uint64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sessionState{}, 0, ErrClosed
	}
	if s.state == Loading {
		s.mu.Unlock()
		return sessionState{}, 0, ErrBusy
	}

	prev := sessionState{snap: s.snapshotLocked(), token: s.token}
	s.state = Loading
	gen := s.generation
	s.notifyAndUnlock()
	return prev, gen, nil
}

// finish applies next unless the session was reset since begin.
func (s *Store) finish(gen uint64, next sessionState) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	s.state = next.snap.State
	s.user = next.snap.User
	s.token = next.token
	s.notifyAndUnlock()
	return true
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{State: s.state, User: s.user}
}

// notifyAndUnlock releases mu and delivers the current snapshot to every
// subscriber. Deliveries happen in transition order.
func (s *Store) notifyAndUnlock() {
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
