package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerhub/api/internal/apiclient"
	"volunteerhub/api/internal/models"
)

type fakeAPI struct {
	mu       sync.Mutex
	users    map[string]string
	loginErr error
	meErr    error
	// gate, when set, blocks Login and Register until closed.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{users: map[string]string{"ada@example.com": "secret123"}}
}

func (f *fakeAPI) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeAPI) Register(_ context.Context, name, email, password string) (models.PublicUser, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.users[email]; taken {
		return models.PublicUser{}, &apiclient.Error{Status: http.StatusBadRequest, Message: "Email already registered"}
	}
	f.users[email] = password
	return models.PublicUser{ID: "new", Name: name, Email: email}, nil
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (apiclient.LoginResult, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return apiclient.LoginResult{}, f.loginErr
	}
	if pw, ok := f.users[email]; !ok || pw != password {
		return apiclient.LoginResult{}, &apiclient.Error{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return apiclient.LoginResult{
		User:  models.PublicUser{ID: "u-" + email, Name: "Ada", Email: email},
		Token: "token-for-" + email,
	}, nil
}

func (f *fakeAPI) Me(_ context.Context, token string) (models.PublicUser, error) {
	if f.meErr != nil {
		return models.PublicUser{}, f.meErr
	}
	return models.PublicUser{ID: "u-ada@example.com", Name: "Ada Lovelace", Email: "ada@example.com"}, nil
}

type recorder struct {
	mu     sync.Mutex
	routes []string
}

func (r *recorder) Replace(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func collect(s *Store) *[]State {
	var mu sync.Mutex
	states := &[]State{}
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		*states = append(*states, snap.State)
		mu.Unlock()
	})
	return states
}

func TestLogin_Success(t *testing.T) {
	s := New(newFakeAPI(), &recorder{})
	states := collect(s)

	require.NoError(t, s.Login(context.Background(), "ada@example.com", "secret123"))

	snap := s.Snapshot()
	assert.True(t, snap.Authenticated())
	assert.Equal(t, "ada@example.com", snap.User.Email)
	token, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "token-for-ada@example.com", token)
	assert.Equal(t, []State{Loading, Authenticated}, *states)
}

func TestLogin_FailureRestoresState(t *testing.T) {
	s := New(newFakeAPI(), &recorder{})
	states := collect(s)

	err := s.Login(context.Background(), "ada@example.com", "wrong")
	require.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, ErrLoginFailed.Error(), err.Error())
	assert.True(t, apiclient.HasStatus(err, http.StatusUnauthorized))

	assert.Equal(t, Unauthenticated, s.Snapshot().State)
	_, ok := s.Token()
	assert.False(t, ok)
	assert.Equal(t, []State{Loading, Unauthenticated}, *states)
}

func TestRegister_DoesNotAuthenticate(t *testing.T) {
	s := New(newFakeAPI(), &recorder{})

	user, err := s.Register(context.Background(), "Grace", "grace@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", user.Email)
	assert.Equal(t, Unauthenticated, s.Snapshot().State)

	_, err = s.Register(context.Background(), "Grace", "grace@example.com", "pw")
	require.ErrorIs(t, err, ErrRegistrationFailed)
	assert.Equal(t, Unauthenticated, s.Snapshot().State)
}

func TestSingleFlight(t *testing.T) {
	api := newFakeAPI()
	api.gate = make(chan struct{})
	api.entered = make(chan struct{}, 1)
	s := New(api, &recorder{})

	done := make(chan error, 1)
	go func() { done <- s.Login(context.Background(), "ada@example.com", "secret123") }()
	<-api.entered

	assert.Equal(t, Loading, s.Snapshot().State)
	assert.ErrorIs(t, s.Login(context.Background(), "ada@example.com", "secret123"), ErrBusy)
	_, err := s.Register(context.Background(), "B", "b@example.com", "pw")
	assert.ErrorIs(t, err, ErrBusy)

	close(api.gate)
	require.NoError(t, <-done)
	assert.Equal(t, Authenticated, s.Snapshot().State)
}

func TestLogout(t *testing.T) {
	nav := &recorder{}
	s := New(newFakeAPI(), nav)
	require.NoError(t, s.Login(context.Background(), "ada@example.com", "secret123"))

	s.Logout()

	snap := s.Snapshot()
	assert.Equal(t, Unauthenticated, snap.State)
	assert.Empty(t, snap.User.ID)
	_, ok := s.Token()
	assert.False(t, ok)
	assert.Equal(t, []string{LoginRoute}, nav.routes)
}

func TestLogoutDiscardsInFlightLogin(t *testing.T) {
	api := newFakeAPI()
	api.gate = make(chan struct{})
	api.entered = make(chan struct{}, 1)
	s := New(api, &recorder{})

	done := make(chan error, 1)
	go func() { done <- s.Login(context.Background(), "ada@example.com", "secret123") }()
	<-api.entered

	s.Logout()
	close(api.gate)

	err := <-done
	require.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, Unauthenticated, s.Snapshot().State)
}

func TestProfile(t *testing.T) {
	api := newFakeAPI()
	s := New(api, &recorder{})

	_, err := s.Profile(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, s.Login(context.Background(), "ada@example.com", "secret123"))
	user, err := s.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "Ada Lovelace", s.Snapshot().User.Name)

	api.meErr = errors.New("offline")
	_, err = s.Profile(context.Background())
	require.Error(t, err)
	assert.True(t, s.Snapshot().Authenticated())
}

func TestClose(t *testing.T) {
	s := New(newFakeAPI(), &recorder{})
	calls := 0
	s.Subscribe(func(Snapshot) { calls++ })
	require.NoError(t, s.Login(context.Background(), "ada@example.com", "secret123"))
	require.Equal(t, 2, calls)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Login(context.Background(), "ada@example.com", "secret123"), ErrClosed)
	assert.Equal(t, Unauthenticated, s.Snapshot().State)
	assert.Equal(t, 2, calls)
}

func TestUnsubscribe(t *testing.T) {
	s := New(newFakeAPI(), &recorder{})
	calls := 0
	unsubscribe := s.Subscribe(func(Snapshot) { calls++ })
	unsubscribe()

	require.NoError(t, s.Login(context.Background(), "ada@example.com", "secret123"))
	assert.Zero(t, calls)
}

func TestRedirect(t *testing.T) {
	signedIn := Snapshot{State: Authenticated, User: models.PublicUser{ID: "u1"}}
	signedOut := Snapshot{State: Unauthenticated}
	loading := Snapshot{State: Loading}

	cases := []struct {
		snap   Snapshot
		route  string
		target string
		ok     bool
	}{
		{signedOut, "/(tabs)/home", LoginRoute, true},
		{signedOut, "/(tabs)", LoginRoute, true},
		{signedOut, "/login", "", false},
		{signedOut, "/register", "", false},
		{signedIn, "/login", HomeRoute, true},
		{signedIn, "/", HomeRoute, true},
		{signedIn, "/(tabs)/profile", "", false},
		{loading, "/(tabs)/home", "", false},
		{loading, "/login", "", false},
	}
	for _, tc := range cases {
		target, ok := Redirect(tc.snap, tc.route)
		assert.Equal(t, tc.ok, ok, "%s on %s", tc.snap.State, tc.route)
		assert.Equal(t, tc.target, target, "%s on %s", tc.snap.State, tc.route)
	}
}
