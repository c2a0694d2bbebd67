// Package session holds who is making requests: user, tenant, access scope and
// the cached knowledge-base selection. One Context is built at startup and
// handed to every collaborator that needs identity.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stub identity used in local mode.
var (
	LocalUser = User{
		ID:                  "local-user",
		Username:            "本地用户",
		Email:               "local@weknora.local",
		TenantID:            1,
		CanAccessAllTenants: true,
	}
	LocalTenant = Tenant{
		ID:     1,
		Name:   "本地租户",
		APIKey: "local-api-key",
		Status: "active",
	}
	LocalToken = "local-mode-token"
)

// Store persists snapshots between processes.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Clear(ctx context.Context) error
}

// Options configure a Context.
type Options struct {
	Mode  Mode
	Store Store
	Now   func() time.Time
}

// Context is the process-wide session state. Setters replace whole fields
// under a write lock; readers get copies.
type Context struct {
	mu    sync.RWMutex
	mode  Mode
	store Store
	now   func() time.Time

	sessionID    string
	state        State
	user         User
	tenant       Tenant
	token        string
	refreshToken string

	selectedTenantID   uint64
	selectedTenantName string
	allTenants         []Tenant

	knowledgeBases       []KnowledgeBase
	currentKnowledgeBase *KnowledgeBase
}

// New builds a context. Local mode starts authenticated with the stub identity.
func New(opts Options) *Context {
	if opts.Mode == "" {
		opts.Mode = ModeLocal
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Context{
		mode:  opts.Mode,
		store: opts.Store,
		now:   opts.Now,
	}
	c.resetLocked()
	if c.mode == ModeLocal {
		c.seedLocalLocked()
	}
	return c
}

func (c *Context) resetLocked() {
	c.sessionID = ""
	c.state = StateUnauthenticated
	c.user = User{}
	c.tenant = Tenant{}
	c.token = ""
	c.refreshToken = ""
	c.selectedTenantID = 0
	c.selectedTenantName = ""
	c.allTenants = []Tenant{}
	c.knowledgeBases = []KnowledgeBase{}
	c.currentKnowledgeBase = nil
}

func (c *Context) seedLocalLocked() {
	c.sessionID = uuid.NewString()
	c.state = StateAuthenticated
	c.user = LocalUser
	c.tenant = LocalTenant
	c.token = LocalToken
}

// Mode reports the configured mode.
func (c *Context) Mode() Mode {
	return c.mode
}

// State reports the authentication state.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SessionID identifies the current authenticated session, empty when logged out.
func (c *Context) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Context) CurrentUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user.ID
}

// CurrentTenantID prefers the tenant record and falls back to the user's tenant.
func (c *Context) CurrentTenantID() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTenantIDLocked()
}

func (c *Context) currentTenantIDLocked() uint64 {
	if c.tenant.ID != 0 {
		return c.tenant.ID
	}
	return c.user.TenantID
}

func (c *Context) IsLoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateAuthenticated && c.token != ""
}

func (c *Context) HasValidTenant() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tenant.ID != 0
}

func (c *Context) AccessScope() AccessScope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scopeLocked()
}

func (c *Context) scopeLocked() AccessScope {
	if c.user.CanAccessAllTenants {
		return ScopeAllTenants
	}
	return ScopeSelf
}

func (c *Context) CanAccessAllTenants() bool {
	return c.AccessScope() == ScopeAllTenants
}

// EffectiveTenantID is the selected tenant for cross-tenant users, otherwise
// the user's own tenant.
func (c *Context) EffectiveTenantID() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.effectiveTenantIDLocked()
}

func (c *Context) effectiveTenantIDLocked() uint64 {
	if c.scopeLocked() == ScopeAllTenants && c.selectedTenantID != 0 {
		return c.selectedTenantID
	}
	return c.currentTenantIDLocked()
}

func (c *Context) User() User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Context) Tenant() Tenant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tenant
}

func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Context) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshToken
}

// SetUser replaces the user. Dropping cross-tenant access clears the selected tenant.
func (c *Context) SetUser(u User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
	if !u.CanAccessAllTenants {
		c.selectedTenantID = 0
		c.selectedTenantName = ""
	}
	return nil
}

func (c *Context) SetTenant(t Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenant = t
	return nil
}

func (c *Context) SetToken(token string) error {
	if err := validateToken("token", token); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	return nil
}

func (c *Context) SetRefreshToken(token string) error {
	if err := validateToken("refresh token", token); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshToken = token
	return nil
}

// KnowledgeBases returns a copy of the cached list in order.
func (c *Context) KnowledgeBases() []KnowledgeBase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]KnowledgeBase{}, c.knowledgeBases...)
}

// SetKnowledgeBases replaces the cached list. nil stores an empty list.
func (c *Context) SetKnowledgeBases(list []KnowledgeBase) error {
	for i, kb := range list {
		if err := kb.Validate(); err != nil {
			return fmt.Errorf("knowledge base %d: %w", i, err)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.knowledgeBases = append([]KnowledgeBase{}, list...)
	return nil
}

// SetKnowledgeBasesJSON replaces the cached list from a raw payload. Anything
// other than a JSON array stores an empty list.
func (c *Context) SetKnowledgeBasesJSON(raw []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return c.SetKnowledgeBases(nil)
	}
	list := make([]KnowledgeBase, 0, len(items))
	for i, item := range items {
		var kb KnowledgeBase
		if err := json.Unmarshal(item, &kb); err != nil {
			return fmt.Errorf("knowledge base %d: %w", i, invalid("knowledge base", "%v", err))
		}
		list = append(list, kb)
	}
	return c.SetKnowledgeBases(list)
}

// CurrentKnowledgeBase returns the selection or nil.
func (c *Context) CurrentKnowledgeBase() *KnowledgeBase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.currentKnowledgeBase == nil {
		return nil
	}
	kb := *c.currentKnowledgeBase
	return &kb
}

// SetCurrentKnowledgeBase replaces the selection; nil clears it.
func (c *Context) SetCurrentKnowledgeBase(kb *KnowledgeBase) error {
	if kb == nil {
		c.mu.Lock()
		c.currentKnowledgeBase = nil
		c.mu.Unlock()
		return nil
	}
	if err := kb.Validate(); err != nil {
		return err
	}
	selected := *kb
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentKnowledgeBase = &selected
	return nil
}

// SelectedTenant returns the tenant chosen by a cross-tenant user.
func (c *Context) SelectedTenant() (uint64, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selectedTenantID, c.selectedTenantName
}

// SetSelectedTenant switches the acting tenant. id 0 clears the selection.
func (c *Context) SetSelectedTenant(id uint64, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != 0 && c.scopeLocked() != ScopeAllTenants {
		return ErrScopeDenied
	}
	c.selectedTenantID = id
	c.selectedTenantName = name
	if id == 0 {
		c.selectedTenantName = ""
	}
	return nil
}

// AllTenants returns the cached tenant list of a cross-tenant user.
func (c *Context) AllTenants() []Tenant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Tenant{}, c.allTenants...)
}

func (c *Context) SetAllTenants(list []Tenant) error {
	for i, t := range list {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tenant %d: %w", i, err)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allTenants = append([]Tenant{}, list...)
	return nil
}

// BeginAuthentication moves an unauthenticated context to authenticating.
func (c *Context) BeginAuthentication() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateUnauthenticated {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, StateAuthenticating)
	}
	c.state = StateAuthenticating
	return nil
}

// CompleteAuthentication installs the identity returned by an authentication
// exchange. Nothing changes when any part is invalid.
func (c *Context) CompleteAuthentication(creds Credentials) error {
	if err := creds.User.Validate(); err != nil {
		return err
	}
	if err := creds.Tenant.Validate(); err != nil {
		return err
	}
	if err := validateToken("token", creds.Token); err != nil {
		return err
	}
	if creds.RefreshToken != "" {
		if err := validateToken("refresh token", creds.RefreshToken); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAuthenticating {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, StateAuthenticated)
	}
	c.sessionID = uuid.NewString()
	c.state = StateAuthenticated
	c.user = creds.User
	c.tenant = creds.Tenant
	c.token = creds.Token
	c.refreshToken = creds.RefreshToken
	return nil
}

// FailAuthentication abandons an exchange in progress.
func (c *Context) FailAuthentication() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAuthenticating {
		c.state = StateUnauthenticated
	}
}

// Logout resets identity and caches to the unauthenticated baseline. It is
// also the transition taken on token expiry.
func (c *Context) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Snapshot captures the current state for persistence.
func (c *Context) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := &Snapshot{
		SessionID:          c.sessionID,
		Mode:               c.mode,
		Token:              c.token,
		RefreshToken:       c.refreshToken,
		SelectedTenantID:   c.selectedTenantID,
		SelectedTenantName: c.selectedTenantName,
		KnowledgeBases:     append([]KnowledgeBase{}, c.knowledgeBases...),
		SavedAt:            c.now().UTC(),
	}
	if c.user.ID != "" {
		u := c.user
		snap.User = &u
	}
	if c.tenant.ID != 0 {
		t := c.tenant
		snap.Tenant = &t
	}
	if c.currentKnowledgeBase != nil {
		kb := *c.currentKnowledgeBase
		snap.CurrentKnowledgeBase = &kb
	}
	return snap
}

// Restore replaces the state with snap after validating every part. A
// snapshot saved under another mode is rejected.
func (c *Context) Restore(snap *Snapshot) error {
	if snap == nil {
		return invalid("snapshot", "is nil")
	}
	if snap.Mode != "" && snap.Mode != c.mode {
		return invalid("snapshot", "mode %s does not match %s", snap.Mode, c.mode)
	}
	if snap.User != nil {
		if err := snap.User.Validate(); err != nil {
			return err
		}
	}
	if snap.Tenant != nil {
		if err := snap.Tenant.Validate(); err != nil {
			return err
		}
	}
	for i, kb := range snap.KnowledgeBases {
		if err := kb.Validate(); err != nil {
			return fmt.Errorf("knowledge base %d: %w", i, err)
		}
	}
	if snap.CurrentKnowledgeBase != nil {
		if err := snap.CurrentKnowledgeBase.Validate(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	if c.mode == ModeLocal {
		c.seedLocalLocked()
	}
	if snap.SessionID != "" {
		c.sessionID = snap.SessionID
	}
	if snap.User != nil {
		c.user = *snap.User
	}
	if snap.Tenant != nil {
		c.tenant = *snap.Tenant
	}
	if snap.Token != "" {
		c.token = snap.Token
		c.refreshToken = snap.RefreshToken
	}
	if c.user.ID != "" && c.token != "" {
		c.state = StateAuthenticated
	}
	if c.scopeLocked() == ScopeAllTenants {
		c.selectedTenantID = snap.SelectedTenantID
		c.selectedTenantName = snap.SelectedTenantName
	}
	c.knowledgeBases = append([]KnowledgeBase{}, snap.KnowledgeBases...)
	if snap.CurrentKnowledgeBase != nil {
		kb := *snap.CurrentKnowledgeBase
		c.currentKnowledgeBase = &kb
	}
	return nil
}

// InitFromStorage restores the last persisted snapshot. Without a store or a
// stored snapshot it only re-seeds the local identity when it was logged out.
func (c *Context) InitFromStorage(ctx context.Context) error {
	var snap *Snapshot
	if c.store != nil {
		loaded, err := c.store.Load(ctx)
		switch {
		case errors.Is(err, ErrNoSnapshot):
		case err != nil:
			return fmt.Errorf("load session: %w", err)
		default:
			snap = loaded
		}
	}
	if snap != nil {
		return c.Restore(snap)
	}
	if c.mode == ModeLocal {
		c.mu.Lock()
		if c.state == StateUnauthenticated {
			c.seedLocalLocked()
		}
		c.mu.Unlock()
	}
	return nil
}

// Persist saves the current snapshot. It is a no-op without a store.
func (c *Context) Persist(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Save(ctx, c.Snapshot()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Forget removes any persisted snapshot.
func (c *Context) Forget(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// TenantHeader selects the acting tenant on cross-tenant calls.
const TenantHeader = "X-Tenant-ID"

// RequestHeaders supplies identity headers for each outgoing request.
func (c *Context) RequestHeaders() http.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h := http.Header{}
	if c.mode == ModeDynamic && c.state == StateAuthenticated && c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	if c.scopeLocked() == ScopeAllTenants && c.selectedTenantID != 0 {
		h.Set(TenantHeader, strconv.FormatUint(c.selectedTenantID, 10))
	}
	return h
}
