package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	domainauth "github.com/target/medsurge/internal/domain/auth"
	"github.com/target/medsurge/internal/domain/invalidation"
	"github.com/target/medsurge/internal/domain/rbac"
	"github.com/target/medsurge/internal/observability/metrics"
	"github.com/target/medsurge/internal/ports"
)

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Store   ports.CredentialStore
	Gateway ports.IdentityGateway
	// Bus is optional; when set the manager subscribes to forced logouts.
	Bus     *invalidation.Bus
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// SessionManager is the single writer of the process-wide session.
//
// Every identity resolution is tagged with a sequence number issued right
// before the gateway is asked to validate. Logout and forced logout also
// advance the sequence. A resolution only commits if its number is still the
// latest one issued, so stale results are dropped instead of overwriting newer state.
type SessionManager struct {
	store     ports.CredentialStore
	gateway   ports.IdentityGateway
	logger    *slog.Logger
	metrics   metrics.Recorder
	validator *validator.Validate

	// storeMu serializes store I/O so mu is never held across a store call.
	// Lock order is storeMu, then mu.
	storeMu sync.Mutex

	mu    sync.Mutex
	state domainauth.Session
	// credential is what this manager last wrote to or read from the store.
	credential  domainauth.Credential
	seq         uint64
	watchers    map[chan domainauth.Session]struct{}
	unsubscribe func()
}

var (
	errStoreRequired   = errors.New("credential store is required")
	errGatewayRequired = errors.New("identity gateway is required")
)

// NewSessionManager constructs a manager in the initial loading shape.
// Call Start to run the startup credential check.
func NewSessionManager(opts SessionManagerOptions) (*SessionManager, error) {
	if opts.Store == nil {
		return nil, errStoreRequired
	}
	if opts.Gateway == nil {
		return nil, errGatewayRequired
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	m := &SessionManager{
		store:     opts.Store,
		gateway:   opts.Gateway,
		logger:    logger,
		metrics:   rec,
		validator: newRegistrationValidator(),
		state:     domainauth.NewSession(),
		watchers:  make(map[chan domainauth.Session]struct{}),
	}
	if opts.Bus != nil {
		m.unsubscribe = opts.Bus.Subscribe(m.handleInvalidation)
	}
	return m, nil
}

// LoginResult is returned to UI callers instead of an error so a failed
// attempt can never break navigation.
type LoginResult struct {
	Success bool
	User    *domainauth.User
	Err     *domainauth.Error
}

// Start runs the startup credential check (Idle -> Loading -> settled).
func (m *SessionManager) Start(ctx context.Context) domainauth.Session {
	return m.resolveFromStorage(ctx, metrics.TriggerStartup)
}

// RefreshFromStorage re-validates whatever credential is stored.
func (m *SessionManager) RefreshFromStorage(ctx context.Context) domainauth.Session {
	return m.resolveFromStorage(ctx, metrics.TriggerRefresh)
}

func (m *SessionManager) resolveFromStorage(ctx context.Context, trigger string) domainauth.Session {
	m.mu.Lock()
	seq := m.nextSeqLocked()
	loading := m.state.Clone()
	loading.Loading = true
	loading.Phase = domainauth.PhaseLoading
	m.commitLocked(loading, trigger)
	m.mu.Unlock()

	m.storeMu.Lock()
	cred, err := m.store.Get(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "read stored credential failed", "error", err)
	}
	m.mu.Lock()
	if seq != m.seq {
		m.discardLocked(ctx, trigger)
		s := m.state.Clone()
		m.mu.Unlock()
		m.storeMu.Unlock()
		return s
	}
	if err != nil || cred.IsZero() {
		m.credential = ""
		m.commitLocked(domainauth.UnauthenticatedSession(), trigger)
		s := m.state.Clone()
		m.mu.Unlock()
		m.storeMu.Unlock()
		return s
	}
	m.credential = cred
	m.mu.Unlock()
	m.storeMu.Unlock()

	user, verr := m.validate(ctx, cred)

	m.mu.Lock()
	if seq != m.seq {
		m.discardLocked(ctx, trigger)
		s := m.state.Clone()
		m.mu.Unlock()
		return s
	}
	if verr != nil {
		// A rejected credential is discarded rather than retried forever.
		reject := verr.Kind != domainauth.KindServerUnreachable
		if reject {
			m.credential = ""
		}
		m.logger.WarnContext(ctx, "stored credential not accepted", "kind", verr.Kind, "error", verr)
		m.commitLocked(domainauth.UnauthenticatedSession(), trigger)
		s := m.state.Clone()
		m.mu.Unlock()
		if reject {
			m.clearStoreIfCurrent(ctx, seq)
		}
		return s
	}
	m.commitLocked(domainauth.AuthenticatedSession(user), trigger)
	s := m.state.Clone()
	m.mu.Unlock()
	m.logger.InfoContext(ctx, "session restored", "user_id", user.ID, "role", user.Role)
	return s
}

// Login authenticates and resolves the user in two round trips.
// A gateway login failure leaves the session untouched. A validation failure
// after a successful login clears the new credential and settles unauthenticated.
func (m *SessionManager) Login(ctx context.Context, email, password string) LoginResult {
	start := time.Now()
	cred, err := m.gateway.Login(ctx, email, password)
	m.metrics.GatewayCall("login", time.Since(start), err)
	if err != nil {
		ae := domainauth.Classify(err)
		m.logger.InfoContext(ctx, "login rejected", "kind", ae.Kind)
		return LoginResult{Err: ae}
	}
	if cred.IsZero() {
		return LoginResult{Err: domainauth.MalformedResponse("identity service returned an empty credential", nil)}
	}

	m.mu.Lock()
	seq := m.nextSeqLocked()
	m.mu.Unlock()

	stored, setErr := m.storeIfCurrent(seq, func() error {
		err := m.store.Set(ctx, cred)
		m.mu.Lock()
		m.credential = cred
		m.mu.Unlock()
		return err
	})
	if setErr != nil {
		// The session still works for this process; it just will not survive a restart.
		m.logger.WarnContext(ctx, "persist credential failed", "error", setErr)
	}
	if !stored {
		m.mu.Lock()
		m.discardLocked(ctx, metrics.TriggerLogin)
		m.mu.Unlock()
		return LoginResult{Err: errSuperseded()}
	}

	user, verr := m.validate(ctx, cred)

	m.mu.Lock()
	if seq != m.seq {
		m.discardLocked(ctx, metrics.TriggerLogin)
		m.mu.Unlock()
		return LoginResult{Err: errSuperseded()}
	}
	if verr != nil {
		m.credential = ""
		m.commitLocked(domainauth.UnauthenticatedSession(), metrics.TriggerLogin)
		m.mu.Unlock()
		m.clearStoreIfCurrent(ctx, seq)
		m.logger.WarnContext(ctx, "login validation failed", "kind", verr.Kind, "error", verr)
		return LoginResult{Err: verr}
	}
	m.commitLocked(domainauth.AuthenticatedSession(user), metrics.TriggerLogin)
	m.mu.Unlock()
	m.logger.InfoContext(ctx, "login succeeded", "user_id", user.ID, "role", user.Role)
	u := user.Clone()
	return LoginResult{Success: true, User: &u}
}

// Logout clears the stored credential and settles unauthenticated.
// It is unconditional and idempotent.
func (m *SessionManager) Logout(ctx context.Context) {
	m.logout(ctx, metrics.TriggerLogout)
}

func (m *SessionManager) logout(ctx context.Context, trigger string) {
	m.mu.Lock()
	seq := m.nextSeqLocked()
	m.credential = ""
	m.commitLocked(domainauth.UnauthenticatedSession(), trigger)
	m.mu.Unlock()
	m.clearStoreIfCurrent(ctx, seq)
}

// handleInvalidation is the bus subscriber: a forced logout is a silent
// transition back to the signed-out shape.
func (m *SessionManager) handleInvalidation(ctx context.Context, ev invalidation.Event) {
	if ev.Kind != invalidation.EventLogout {
		return
	}
	m.metrics.Invalidation(ev.Reason)
	m.logger.InfoContext(ctx, "session invalidated", "reason", ev.Reason, "source", ev.Source)
	// The publisher's request may already be finished; clearing must not be cut short.
	m.logout(context.WithoutCancel(ctx), metrics.TriggerInvalidation)
}

// SyncFromStorage reconciles the session with out-of-band store changes,
// e.g. another process signing out. Changes this manager made itself are ignored.
func (m *SessionManager) SyncFromStorage(ctx context.Context) error {
	m.storeMu.Lock()
	cred, err := m.store.Get(ctx)
	m.mu.Lock()
	known := m.credential
	m.mu.Unlock()
	m.storeMu.Unlock()
	if err != nil {
		return err
	}
	if cred == known {
		return nil
	}
	if cred.IsZero() {
		m.logger.InfoContext(ctx, "credential removed externally")
		m.logout(ctx, metrics.TriggerSync)
		return nil
	}
	m.logger.InfoContext(ctx, "credential replaced externally")
	m.resolveFromStorage(ctx, metrics.TriggerSync)
	return nil
}

// SwitchRole changes the active permission lens if the user is entitled to
// target. Otherwise it is a silent no-op. It returns the active role.
func (m *SessionManager) SwitchRole(target domainauth.Role) domainauth.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.IsAuthenticated || m.state.User == nil {
		return ""
	}
	next := rbac.SwitchRole(m.state.User, m.state.ActiveRole, target)
	if next != m.state.ActiveRole {
		m.state.ActiveRole = next
		m.notifyLocked()
	}
	return m.state.ActiveRole
}

// Permissions returns the permissions of the active role, recomputed on every call.
func (m *SessionManager) Permissions() []domainauth.Permission {
	return rbac.PermissionsFor(m.activeRole())
}

// HasPermission reports whether the active role grants p.
func (m *SessionManager) HasPermission(p domainauth.Permission) bool {
	return rbac.HasPermission(m.activeRole(), p)
}

func (m *SessionManager) activeRole() domainauth.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.IsAuthenticated {
		return ""
	}
	return m.state.ActiveRole
}

// Snapshot returns a copy of the current session.
func (m *SessionManager) Snapshot() domainauth.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Credential returns the credential backing the current session, if any.
func (m *SessionManager) Credential() domainauth.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential
}

// Watch subscribes to session changes. The channel holds only the latest
// snapshot; slow readers skip intermediate states. cancel closes the channel.
func (m *SessionManager) Watch() (func(), <-chan domainauth.Session) {
	ch := make(chan domainauth.Session, 1)
	m.mu.Lock()
	m.watchers[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.watchers[ch]; ok {
				delete(m.watchers, ch)
				close(ch)
			}
		})
	}
	return cancel, ch
}

// Close detaches from the invalidation bus and closes every watcher.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	for ch := range m.watchers {
		delete(m.watchers, ch)
		close(ch)
	}
}

func (m *SessionManager) validate(ctx context.Context, cred domainauth.Credential) (domainauth.User, *domainauth.Error) {
	start := time.Now()
	user, err := m.gateway.Validate(ctx, cred)
	m.metrics.GatewayCall("validate", time.Since(start), err)
	if err != nil {
		return domainauth.User{}, domainauth.Classify(err)
	}
	return user, nil
}

func (m *SessionManager) nextSeqLocked() uint64 {
	m.seq++
	return m.seq
}

// storeIfCurrent runs op under storeMu if seq is still the latest sequence.
// Store effects therefore land in sequence order: a superseded operation
// never writes over the store state of a newer one.
func (m *SessionManager) storeIfCurrent(seq uint64, op func() error) (bool, error) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	m.mu.Lock()
	current := seq == m.seq
	m.mu.Unlock()
	if !current {
		return false, nil
	}
	return true, op()
}

func (m *SessionManager) clearStoreIfCurrent(ctx context.Context, seq uint64) {
	if _, err := m.storeIfCurrent(seq, func() error { return m.store.Clear(ctx) }); err != nil {
		m.logger.WarnContext(ctx, "clear stored credential failed", "error", err)
	}
}

func (m *SessionManager) discardLocked(ctx context.Context, trigger string) {
	m.metrics.StaleResolution(trigger)
	m.logger.DebugContext(ctx, "discarded stale identity resolution", "trigger", trigger)
}

func (m *SessionManager) commitLocked(next domainauth.Session, trigger string) {
	m.metrics.SessionTransition(m.state.Phase, next.Phase, trigger)
	m.state = next
	m.notifyLocked()
}

// notifyLocked hands the latest snapshot to every watcher without blocking.
// The manager is the only sender and holds mu, so after draining the single
// buffered slot the send cannot block.
func (m *SessionManager) notifyLocked() {
	for ch := range m.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- m.state.Clone()
	}
}

func errSuperseded() *domainauth.Error {
	return domainauth.NewError(domainauth.KindSuperseded, "", nil)
}
