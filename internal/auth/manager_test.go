package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campusdash/internal/api"
	"campusdash/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.AuthResult), args.Error(1)
}

func (m *MockGateway) Register(ctx context.Context, creds api.Credentials) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

func (m *MockGateway) Refresh(ctx context.Context, refreshToken string) (*api.AuthResult, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.AuthResult), args.Error(1)
}

// failingStore fails every call.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, session.ErrStoreRead
}

func (failingStore) MultiGet(context.Context, ...string) (map[string]string, error) {
	return nil, session.ErrStoreRead
}

func (failingStore) MultiSet(context.Context, map[string]string) error {
	return session.ErrStoreWrite
}

func (failingStore) MultiRemove(context.Context, ...string) error {
	return session.ErrStoreRemove
}

func TestManager_LoginRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	gw := new(MockGateway)

	gw.On("Login", mock.Anything, api.Credentials{Email: "dash@umbc.edu", Password: "secret1", IsDasher: true}).
		Return(&api.AuthResult{AccessToken: "tok", RefreshToken: "ref", UserID: "u-9"}, nil).Once()

	m := NewManager(gw, store)
	require.NoError(t, m.Login(ctx, " Dash@UMBC.edu ", "secret1", session.RoleCourier))
	assert.Equal(t, StateCourier, m.State())

	// A fresh process restores the same session from storage.
	restored := NewManager(gw, store)
	assert.Equal(t, StateUnknown, restored.State())
	assert.Equal(t, StateCourier, restored.Restore(ctx))

	sess := restored.Session()
	assert.Equal(t, "tok", sess.AccessToken)
	assert.Equal(t, "ref", sess.RefreshToken)
	assert.Equal(t, "u-9", sess.UserID)
	assert.Equal(t, "dash@umbc.edu", sess.UserEmail)
	assert.Equal(t, session.RoleCourier, sess.Role)
	gw.AssertExpectations(t)
}

func TestManager_LoginValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"Empty email", "", "secret1", ErrEmailRequired},
		{"Bad email", "not-an-email", "secret1", ErrInvalidEmail},
		{"Empty password", "a@umbc.edu", "", ErrPasswordRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			m := NewManager(gw, session.NewMemoryStore())

			err := m.Login(context.Background(), tt.email, tt.password, session.RoleCustomer)

			assert.ErrorIs(t, err, tt.want)
			assert.True(t, api.IsKind(err, api.KindValidationFailed))
			assert.True(t, IsValidation(err))
			gw.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
		})
	}
}

func TestManager_LoginFailureClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"Unreachable", api.NewError("api.Login", api.KindNetworkUnreachable, errors.New("dial tcp")), ErrServerUnreachable},
		{"Bad credentials", &api.Error{Op: "api.Login", Kind: api.KindAuthenticationRejected, Status: 401}, ErrInvalidCredentials},
		{"Wrong role forbidden", &api.Error{Op: "api.Login", Kind: api.KindForbidden, Status: 403}, ErrNoAccountForRole},
		{"Wrong role not found", &api.Error{Op: "api.Login", Kind: api.KindNotFound, Status: 404}, ErrNoAccountForRole},
		{"Server", &api.Error{Op: "api.Login", Kind: api.KindServerError, Status: 500}, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := session.NewMemoryStore()
			gw := new(MockGateway)
			gw.On("Login", mock.Anything, mock.Anything).Return(nil, tt.err)

			m := NewManager(gw, store)
			m.Restore(context.Background())

			err := m.Login(context.Background(), "a@umbc.edu", "secret1", session.RoleCustomer)

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, StateUnauthenticated, m.State())
			assert.NotEmpty(t, UserMessage(err))

			values, _ := store.MultiGet(context.Background(), session.AllKeys...)
			assert.Empty(t, values)
		})
	}

	t.Run("Distinct messages", func(t *testing.T) {
		seen := map[string]bool{}
		for _, tt := range tests[:3] {
			seen[UserMessage(classify(tt.err))] = true
		}
		assert.Len(t, seen, 3)
	})
}

func TestManager_LoginUserIDFallsBackToTokenSubject(t *testing.T) {
	token := signedToken(t, "sub-42", time.Now().Add(time.Hour))
	gw := new(MockGateway)
	gw.On("Login", mock.Anything, mock.Anything).Return(&api.AuthResult{AccessToken: token}, nil)

	m := NewManager(gw, session.NewMemoryStore())
	require.NoError(t, m.Login(context.Background(), "a@umbc.edu", "secret1", session.RoleCustomer))

	assert.Equal(t, "sub-42", m.Session().UserID)
	assert.Equal(t, StateCustomer, m.State())
}

func TestManager_LoginPersistFailure(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Login", mock.Anything, mock.Anything).Return(&api.AuthResult{AccessToken: "tok"}, nil)

	m := NewManager(gw, failingStore{})
	m.Restore(context.Background())

	err := m.Login(context.Background(), "a@umbc.edu", "secret1", session.RoleCustomer)

	assert.ErrorIs(t, err, ErrPersistSession)
	assert.Equal(t, StateUnauthenticated, m.State())
}

func TestManager_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty store", func(t *testing.T) {
		m := NewManager(new(MockGateway), session.NewMemoryStore())
		assert.Equal(t, StateUnauthenticated, m.Restore(ctx))
	})

	t.Run("Storage failure never leaves unknown", func(t *testing.T) {
		m := NewManager(new(MockGateway), failingStore{})
		assert.Equal(t, StateUnauthenticated, m.Restore(ctx))
	})

	t.Run("Customer role", func(t *testing.T) {
		store := session.NewMemoryStore()
		require.NoError(t, store.MultiSet(ctx, session.Session{AccessToken: "tok", Role: session.RoleCustomer}.Pairs()))

		m := NewManager(new(MockGateway), store)
		assert.Equal(t, StateCustomer, m.Restore(ctx))
	})

	t.Run("Expired token discarded", func(t *testing.T) {
		store := session.NewMemoryStore()
		expired := signedToken(t, "u", time.Now().Add(-time.Hour))
		require.NoError(t, store.MultiSet(ctx, session.Session{AccessToken: expired, Role: session.RoleCourier}.Pairs()))

		m := NewManager(new(MockGateway), store)
		assert.Equal(t, StateUnauthenticated, m.Restore(ctx))

		_, ok, err := store.Get(ctx, session.KeyAccessToken)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestManager_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("Registers then logs in", func(t *testing.T) {
		creds := api.Credentials{Email: "new@umbc.edu", Password: "secret1"}
		gw := new(MockGateway)
		gw.On("Register", mock.Anything, creds).Return(nil).Once()
		gw.On("Login", mock.Anything, creds).Return(&api.AuthResult{AccessToken: "tok", UserID: "u-1"}, nil).Once()

		m := NewManager(gw, session.NewMemoryStore())
		require.NoError(t, m.Signup(ctx, "new@umbc.edu", "secret1", "secret1", session.RoleCustomer))

		assert.Equal(t, StateCustomer, m.State())
		gw.AssertExpectations(t)
	})

	t.Run("Local validation", func(t *testing.T) {
		gw := new(MockGateway)
		m := NewManager(gw, session.NewMemoryStore())

		assert.ErrorIs(t, m.Signup(ctx, "new@umbc.edu", "short", "short", session.RoleCustomer), ErrPasswordTooShort)
		assert.ErrorIs(t, m.Signup(ctx, "new@umbc.edu", "secret1", "secret2", session.RoleCustomer), ErrPasswordMismatch)
		gw.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("Existing account", func(t *testing.T) {
		store := session.NewMemoryStore()
		gw := new(MockGateway)
		gw.On("Register", mock.Anything, mock.Anything).
			Return(&api.Error{Op: "api.Register", Kind: api.KindResourceConflict, Status: 409})

		m := NewManager(gw, store)
		err := m.Signup(ctx, "new@umbc.edu", "secret1", "secret1", session.RoleCourier)

		assert.ErrorIs(t, err, ErrAccountExists)
		gw.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
		values, _ := store.MultiGet(ctx, session.AllKeys...)
		assert.Empty(t, values)
	})
}

func TestManager_LogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	gw := new(MockGateway)
	gw.On("Login", mock.Anything, mock.Anything).Return(&api.AuthResult{AccessToken: "tok"}, nil)

	m := NewManager(gw, store)
	require.NoError(t, m.Login(ctx, "a@umbc.edu", "secret1", session.RoleCustomer))

	var transitions []State
	m.Subscribe(func(s State, _ session.Session) { transitions = append(transitions, s) })

	m.Logout(ctx)
	m.Logout(ctx)

	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Equal(t, []State{StateUnauthenticated}, transitions)
	assert.False(t, m.Session().Authenticated())
	values, err := store.MultiGet(ctx, session.AllKeys...)
	require.NoError(t, err)
	assert.Empty(t, values)

	t.Run("Storage failure still resets", func(t *testing.T) {
		m := NewManager(gw, failingStore{})
		_, deliver := m.commit(session.Session{AccessToken: "tok"})
		deliver()

		m.Logout(ctx)
		assert.Equal(t, StateUnauthenticated, m.State())
	})
}

func TestManager_HandleUnauthorized(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	gw := new(MockGateway)
	gw.On("Login", mock.Anything, mock.Anything).Return(&api.AuthResult{AccessToken: "tok"}, nil)

	m := NewManager(gw, store)
	require.NoError(t, m.Login(ctx, "a@umbc.edu", "secret1", session.RoleCourier))

	m.HandleUnauthorized(ctx)
	assert.Equal(t, StateUnauthenticated, m.State())

	// Converges with an explicit logout.
	m.Logout(ctx)
	assert.Equal(t, StateUnauthenticated, m.State())

	t.Run("Before restore finishes", func(t *testing.T) {
		store := session.NewMemoryStore()
		require.NoError(t, store.MultiSet(ctx, session.Session{
			AccessToken: "stale", RefreshToken: "ref", Role: session.RoleCustomer, UserID: "c-1",
		}.Pairs()))

		m := NewManager(new(MockGateway), store)
		require.Equal(t, StateUnknown, m.State())

		m.HandleUnauthorized(ctx)

		assert.Equal(t, StateUnauthenticated, m.State())
		values, err := store.MultiGet(ctx, session.AllKeys...)
		require.NoError(t, err)
		assert.Empty(t, values)
		assert.Equal(t, StateUnauthenticated, NewManager(new(MockGateway), store).Restore(ctx))
	})
}

func TestManager_ListenersSeeLatestState(t *testing.T) {
	ctx := context.Background()
	gw := new(MockGateway)
	gw.On("Login", mock.Anything, mock.Anything).Return(&api.AuthResult{AccessToken: "tok", UserID: "u-1"}, nil)
	m := NewManager(gw, session.NewMemoryStore())

	var seen []State
	m.Subscribe(func(s State, _ session.Session) { seen = append(seen, s) })

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = m.Login(ctx, "a@umbc.edu", "secret1", session.RoleCustomer)
				return
			}
			m.Logout(ctx)
		}(i)
	}
	wg.Wait()

	require.NotEmpty(t, seen)
	assert.Equal(t, m.State(), seen[len(seen)-1], "the last delivered state must be the current one")
}

func TestManager_Refresh(t *testing.T) {
	ctx := context.Background()

	login := func(t *testing.T, gw *MockGateway, store session.Store) *Manager {
		gw.On("Login", mock.Anything, mock.Anything).
			Return(&api.AuthResult{AccessToken: "tok-1", RefreshToken: "ref-1"}, nil).Once()
		m := NewManager(gw, store)
		require.NoError(t, m.Login(ctx, "a@umbc.edu", "secret1", session.RoleCustomer))
		return m
	}

	t.Run("Success", func(t *testing.T) {
		store := session.NewMemoryStore()
		gw := new(MockGateway)
		m := login(t, gw, store)
		gw.On("Refresh", mock.Anything, "ref-1").Return(&api.AuthResult{AccessToken: "tok-2", RefreshToken: "ref-2"}, nil)

		require.NoError(t, m.Refresh(ctx))

		assert.Equal(t, "tok-2", m.Session().AccessToken)
		tok, _, _ := store.Get(ctx, session.KeyAccessToken)
		assert.Equal(t, "tok-2", tok)
		ref, _, _ := store.Get(ctx, session.KeyRefreshToken)
		assert.Equal(t, "ref-2", ref)
	})

	t.Run("Rejected refresh signs out", func(t *testing.T) {
		store := session.NewMemoryStore()
		gw := new(MockGateway)
		m := login(t, gw, store)
		gw.On("Refresh", mock.Anything, "ref-1").
			Return(nil, &api.Error{Op: "api.Refresh", Kind: api.KindAuthenticationRejected, Status: 401})

		err := m.Refresh(ctx)

		assert.ErrorIs(t, err, ErrSessionExpired)
		assert.Equal(t, StateUnauthenticated, m.State())
	})

	t.Run("Logout during refresh stays logged out", func(t *testing.T) {
		store := session.NewMemoryStore()
		gw := new(MockGateway)
		m := login(t, gw, store)
		gw.On("Refresh", mock.Anything, "ref-1").
			Run(func(mock.Arguments) { m.Logout(ctx) }).
			Return(&api.AuthResult{AccessToken: "tok-2", RefreshToken: "ref-2"}, nil)

		err := m.Refresh(ctx)

		assert.ErrorIs(t, err, ErrSessionExpired)
		assert.Equal(t, StateUnauthenticated, m.State())
		values, err := store.MultiGet(ctx, session.AllKeys...)
		require.NoError(t, err)
		assert.Empty(t, values, "refreshed tokens must not be written back")

		restarted := NewManager(new(MockGateway), store)
		assert.Equal(t, StateUnauthenticated, restarted.Restore(ctx))
	})

	t.Run("Not signed in", func(t *testing.T) {
		m := NewManager(new(MockGateway), session.NewMemoryStore())
		assert.True(t, api.IsKind(m.Refresh(ctx), api.KindUnauthenticated))
	})
}
