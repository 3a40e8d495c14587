package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"campusdash/internal/api"
	"campusdash/internal/logger"
	"campusdash/internal/session"
	"campusdash/internal/utils"

	"go.uber.org/zap"
)

const minPasswordLength = 6

// Gateway is the part of the API client the manager needs.
type Gateway interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error)
	Register(ctx context.Context, creds api.Credentials) error
	Refresh(ctx context.Context, refreshToken string) (*api.AuthResult, error)
}

// Listener is called after every state transition, outside the state lock.
// Listeners run one at a time and never see a transition older than one they
// were already given. They must not call Login, Logout or Restore.
type Listener func(State, session.Session)

// Manager owns the session lifecycle: restore at startup, login, signup,
// logout and the forced sign-out on authorization failures.
type Manager struct {
	gw    Gateway
	store session.Store
	now   func() time.Time

	// persistMu orders writes to the store together with the in-memory
	// session they describe, so a slow refresh cannot resurrect a session
	// that was logged out in the meantime.
	persistMu sync.Mutex

	mu        sync.Mutex
	state     State
	sess      session.Session
	seq       uint64
	nextSub   int
	listeners map[int]Listener

	notifyMu  sync.Mutex
	delivered uint64
}

func NewManager(gw Gateway, store session.Store) *Manager {
	return &Manager{
		gw:        gw,
		store:     store,
		now:       time.Now,
		state:     StateUnknown,
		listeners: make(map[int]Listener),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Session() session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// Subscribe registers fn for subsequent transitions.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Restore reads the persisted session. It always leaves StateUnknown, even
// when storage fails.
func (m *Manager) Restore(ctx context.Context) State {
	log := logger.FromCtx(ctx)

	m.persistMu.Lock()
	values, err := m.store.MultiGet(ctx, session.AllKeys...)
	if err != nil {
		state, deliver := m.commit(session.Session{})
		m.persistMu.Unlock()
		deliver()
		log.Error("failed to restore session", zap.Error(err))
		return state
	}

	sess := session.FromPairs(values)
	if sess.Authenticated() && TokenExpired(sess.AccessToken, m.now()) {
		log.Info("stored access token expired, discarding session")
		if err := m.store.MultiRemove(ctx, session.AllKeys...); err != nil {
			log.Warn("failed to clear expired session", zap.Error(err))
		}
		sess = session.Session{}
	}
	if sess.Authenticated() && sess.UserID == "" {
		sess.UserID = subjectOf(sess.AccessToken)
	}

	state, deliver := m.commit(sess)
	m.persistMu.Unlock()
	deliver()
	log.Info("session restored", zap.Stringer("state", state))
	return state
}

// Login validates locally, authenticates, persists every session key in one
// MultiSet and only then transitions to the role's authenticated state.
func (m *Manager) Login(ctx context.Context, email, password string, role session.Role) error {
	const op = "auth.Login"
	log := logger.FromCtx(ctx).With(zap.String("op", op))

	email = utils.NormalizeEmail(email)
	if err := validateCredentials(op, email, password); err != nil {
		return err
	}

	m.setLoading(true)
	defer m.setLoading(false)

	res, err := m.gw.Login(ctx, api.Credentials{
		Email:    email,
		Password: password,
		IsDasher: role.IsCourier(),
	})
	if err != nil {
		log.Warn("login failed", zap.String("email", email), zap.Error(err))
		return classify(err)
	}

	sess := session.Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Role:         role,
		UserID:       res.UserID,
		UserEmail:    email,
	}
	if sess.UserID == "" {
		sess.UserID = subjectOf(res.AccessToken)
	}

	m.persistMu.Lock()
	if err := m.store.MultiSet(ctx, sess.Pairs()); err != nil {
		m.persistMu.Unlock()
		log.Error("failed to persist session", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistSession, err)
	}
	_, deliver := m.commit(sess)
	m.persistMu.Unlock()
	deliver()

	log.Info("user logged in", zap.String("user_id", sess.UserID), zap.String("role", string(role)))
	return nil
}

// Signup registers the account and then logs in. Nothing is persisted
// unless that final login succeeds.
func (m *Manager) Signup(ctx context.Context, email, password, confirm string, role session.Role) error {
	const op = "auth.Signup"
	log := logger.FromCtx(ctx).With(zap.String("op", op))

	email = utils.NormalizeEmail(email)
	if err := validateCredentials(op, email, password); err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return api.NewError(op, api.KindValidationFailed, ErrPasswordTooShort)
	}
	if password != confirm {
		return api.NewError(op, api.KindValidationFailed, ErrPasswordMismatch)
	}

	err := m.gw.Register(ctx, api.Credentials{
		Email:    email,
		Password: password,
		IsDasher: role.IsCourier(),
	})
	if err != nil {
		log.Warn("registration failed", zap.String("email", email), zap.Error(err))
		if api.IsKind(err, api.KindResourceConflict) {
			return fmt.Errorf("%w: %w", ErrAccountExists, err)
		}
		return classify(err)
	}

	log.Info("user registered", zap.String("email", email))
	return m.Login(ctx, email, password, role)
}

// Logout clears storage and resets the session. It is idempotent and never
// fails: storage errors are logged and the in-memory state resets anyway.
func (m *Manager) Logout(ctx context.Context) {
	log := logger.FromCtx(ctx)

	m.persistMu.Lock()
	if err := m.store.MultiRemove(ctx, session.AllKeys...); err != nil {
		log.Error("failed to clear stored session", zap.Error(err))
	}
	prev := m.State()
	if prev == StateUnauthenticated {
		m.persistMu.Unlock()
		return
	}
	_, deliver := m.commit(session.Session{})
	m.persistMu.Unlock()
	deliver()

	log.Info("user logged out", zap.Stringer("from", prev))
}

// HandleUnauthorized is installed as the API client's 401 hook. It clears
// storage in every state, including before Restore has finished, since the
// rejected token came from there.
func (m *Manager) HandleUnauthorized(ctx context.Context) {
	if m.State().Authenticated() {
		logger.FromCtx(ctx).Warn("authorization rejected by server, signing out")
	}
	m.Logout(ctx)
}

// Refresh swaps the stored refresh token for a new pair. A rejected refresh
// ends the session.
func (m *Manager) Refresh(ctx context.Context) error {
	const op = "auth.Refresh"
	log := logger.FromCtx(ctx).With(zap.String("op", op))

	current := m.Session()
	if !current.Authenticated() {
		return api.NewError(op, api.KindUnauthenticated, api.ErrMissingToken)
	}
	if current.RefreshToken == "" {
		return api.NewError(op, api.KindValidationFailed, ErrNoRefreshToken)
	}

	res, err := m.gw.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if api.IsKind(err, api.KindAuthenticationRejected) || api.IsKind(err, api.KindAuthorizationDenied) {
			log.Warn("refresh rejected, signing out", zap.Error(err))
			m.Logout(ctx)
			return fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return classify(err)
	}

	next := current
	next.AccessToken = res.AccessToken
	if res.RefreshToken != "" {
		next.RefreshToken = res.RefreshToken
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	// A logout or another login may have landed while the request was in
	// flight; the new tokens belong to a session that no longer exists.
	if m.Session().AccessToken != current.AccessToken {
		log.Info("session changed during refresh, dropping result")
		return api.NewError(op, api.KindUnauthenticated, ErrSessionExpired)
	}

	err = m.store.MultiSet(ctx, map[string]string{
		session.KeyAccessToken:  next.AccessToken,
		session.KeyRefreshToken: next.RefreshToken,
	})
	if err != nil {
		log.Error("failed to persist refreshed tokens", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistSession, err)
	}

	m.mu.Lock()
	m.sess = next
	m.mu.Unlock()

	log.Info("session refreshed")
	return nil
}

func validateCredentials(op, email, password string) error {
	switch {
	case email == "":
		return api.NewError(op, api.KindValidationFailed, ErrEmailRequired)
	case !utils.IsValidEmail(email):
		return api.NewError(op, api.KindValidationFailed, ErrInvalidEmail)
	case password == "":
		return api.NewError(op, api.KindValidationFailed, ErrPasswordRequired)
	}
	return nil
}

// classify maps an API failure onto the auth sentinel that drives the inline
// message, keeping the original error in the chain.
func classify(err error) error {
	switch api.KindOf(err) {
	case api.KindNetworkUnreachable:
		return fmt.Errorf("%w: %w", ErrServerUnreachable, err)
	case api.KindAuthenticationRejected, api.KindAuthorizationDenied:
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	case api.KindForbidden, api.KindNotFound:
		return fmt.Errorf("%w: %w", ErrNoAccountForRole, err)
	case api.KindValidationFailed:
		return err
	default:
		return fmt.Errorf("%w: %w", ErrServerError, err)
	}
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.sess.Loading = v
	m.mu.Unlock()
}

// commit installs sess and returns the delivery of the transition to the
// listeners. Callers run deliver after releasing persistMu.
func (m *Manager) commit(sess session.Session) (State, func()) {
	sess.Loading = false
	state := stateFor(sess)

	m.mu.Lock()
	m.sess = sess
	m.state = state
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	return state, func() { m.deliver(seq, state, sess) }
}

// deliver hands one transition to the listeners unless a later one has
// already been delivered.
func (m *Manager) deliver(seq uint64, state State, sess session.Session) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if seq <= m.delivered {
		return
	}
	m.delivered = seq

	m.mu.Lock()
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(state, sess)
	}
}

// IsValidation reports whether err was raised before any network call.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmailRequired) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrPasswordRequired) ||
		errors.Is(err, ErrPasswordTooShort) ||
		errors.Is(err, ErrPasswordMismatch)
}
