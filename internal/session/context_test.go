package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLocalModeStartsWithStubIdentity(t *testing.T) {
	t.Parallel()

	c := New(Options{Mode: ModeLocal})
	if !c.IsLoggedIn() || !c.HasValidTenant() || !c.CanAccessAllTenants() {
		t.Fatalf("local mode should be authenticated with cross-tenant access")
	}
	if c.CurrentUserID() != "local-user" {
		t.Fatalf("unexpected user id %q", c.CurrentUserID())
	}
	if c.CurrentTenantID() != 1 || c.EffectiveTenantID() != 1 {
		t.Fatalf("unexpected tenant ids %d/%d", c.CurrentTenantID(), c.EffectiveTenantID())
	}
	if c.SessionID() == "" {
		t.Fatalf("expected a session id")
	}
}

func TestDynamicModeStartsUnauthenticated(t *testing.T) {
	t.Parallel()

	c := New(Options{Mode: ModeDynamic})
	if c.State() != StateUnauthenticated || c.IsLoggedIn() {
		t.Fatalf("dynamic mode should start logged out")
	}
	if c.CurrentUserID() != "" || c.CurrentTenantID() != 0 || c.HasValidTenant() {
		t.Fatalf("expected empty identity")
	}
}

func TestSetKnowledgeBasesJSON(t *testing.T) {
	t.Parallel()

	c := New(Options{})
	if err := c.SetKnowledgeBasesJSON([]byte(`[{"id":"a","name":"A"},{"id":"b","name":"B"}]`)); err != nil {
		t.Fatalf("SetKnowledgeBasesJSON: %v", err)
	}
	got := c.KnowledgeBases()
	want := []KnowledgeBase{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected list (-want +got):\n%s", diff)
	}

	for _, raw := range []string{`{"id":"a"}`, `"text"`, `null`, `42`, `not json`} {
		if err := c.SetKnowledgeBasesJSON([]byte(raw)); err != nil {
			t.Fatalf("non-array %s should be coerced, got %v", raw, err)
		}
		if got := c.KnowledgeBases(); len(got) != 0 || got == nil {
			t.Fatalf("non-array %s should leave an empty list, got %#v", raw, got)
		}
	}
}

func TestSetKnowledgeBasesRejectsMissingID(t *testing.T) {
	t.Parallel()

	c := New(Options{})
	_ = c.SetKnowledgeBases([]KnowledgeBase{{ID: "keep"}})
	err := c.SetKnowledgeBases([]KnowledgeBase{{ID: "ok"}, {Name: "no id"}})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid got %v", err)
	}
	if got := c.KnowledgeBases(); len(got) != 1 || got[0].ID != "keep" {
		t.Fatalf("rejected input must not change state, got %#v", got)
	}
	if err := c.SetKnowledgeBases(nil); err != nil || len(c.KnowledgeBases()) != 0 {
		t.Fatalf("nil should store an empty list")
	}
}

func TestLogoutResetsToBaseline(t *testing.T) {
	t.Parallel()

	for _, mode := range []Mode{ModeLocal, ModeDynamic} {
		c := New(Options{Mode: mode})
		_ = c.SetKnowledgeBases([]KnowledgeBase{{ID: "kb1"}})
		_ = c.SetCurrentKnowledgeBase(&KnowledgeBase{ID: "kb1"})

		c.Logout()

		if c.IsLoggedIn() || c.HasValidTenant() || c.CanAccessAllTenants() {
			t.Fatalf("%s: expected unauthenticated baseline", mode)
		}
		if c.CurrentUserID() != "" || c.CurrentTenantID() != 0 || c.EffectiveTenantID() != 0 {
			t.Fatalf("%s: expected empty ids", mode)
		}
		if c.Token() != "" || c.RefreshToken() != "" || c.SessionID() != "" {
			t.Fatalf("%s: expected tokens cleared", mode)
		}
		if len(c.KnowledgeBases()) != 0 || c.CurrentKnowledgeBase() != nil {
			t.Fatalf("%s: expected caches cleared", mode)
		}
		if c.State() != StateUnauthenticated {
			t.Fatalf("%s: unexpected state %s", mode, c.State())
		}
		if len(c.RequestHeaders()) != 0 {
			t.Fatalf("%s: expected no identity headers, got %v", mode, c.RequestHeaders())
		}
	}
}

func TestSettersValidate(t *testing.T) {
	t.Parallel()

	c := New(Options{Mode: ModeDynamic})
	cases := []struct {
		name string
		err  error
	}{
		{"user without id", c.SetUser(User{TenantID: 1})},
		{"user without tenant", c.SetUser(User{ID: "u"})},
		{"user bad email", c.SetUser(User{ID: "u", TenantID: 1, Email: "nope"})},
		{"tenant without id", c.SetTenant(Tenant{Name: "t"})},
		{"tenant without name", c.SetTenant(Tenant{ID: 2})},
		{"tenant bad status", c.SetTenant(Tenant{ID: 2, Name: "t", Status: "deleted"})},
		{"empty token", c.SetToken("")},
		{"token with space", c.SetToken("a b")},
		{"empty refresh token", c.SetRefreshToken("")},
		{"kb without id", c.SetCurrentKnowledgeBase(&KnowledgeBase{Name: "x"})},
	}
	for _, tc := range cases {
		var verr *ValidationError
		if !errors.As(tc.err, &verr) {
			t.Fatalf("%s: expected *ValidationError got %v", tc.name, tc.err)
		}
	}
	if c.CurrentUserID() != "" || c.HasValidTenant() || c.Token() != "" {
		t.Fatalf("rejected setters must not change state")
	}

	if err := c.SetUser(User{ID: "u1", TenantID: 3, Email: "u1@example.com"}); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	if err := c.SetTenant(Tenant{ID: 3, Name: "acme", Status: "active"}); err != nil {
		t.Fatalf("SetTenant: %v", err)
	}
	if c.CurrentUserID() != "u1" || c.CurrentTenantID() != 3 {
		t.Fatalf("setters did not apply")
	}
}

func TestSelectedTenantRequiresScope(t *testing.T) {
	t.Parallel()

	c := New(Options{Mode: ModeLocal})
	if err := c.SetSelectedTenant(5, "other"); err != nil {
		t.Fatalf("SetSelectedTenant: %v", err)
	}
	if c.EffectiveTenantID() != 5 {
		t.Fatalf("expected effective tenant 5 got %d", c.EffectiveTenantID())
	}
	if got := c.RequestHeaders().Get(TenantHeader); got != "5" {
		t.Fatalf("expected tenant header 5 got %q", got)
	}

	if err := c.SetUser(User{ID: "u", TenantID: 1}); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	if id, _ := c.SelectedTenant(); id != 0 {
		t.Fatalf("losing cross-tenant access should clear the selection")
	}
	if err := c.SetSelectedTenant(5, "other"); !errors.Is(err, ErrScopeDenied) {
		t.Fatalf("expected ErrScopeDenied got %v", err)
	}
	if c.EffectiveTenantID() != 1 {
		t.Fatalf("expected own tenant, got %d", c.EffectiveTenantID())
	}
}

func TestAuthenticationStateMachine(t *testing.T) {
	t.Parallel()

	c := New(Options{Mode: ModeDynamic})
	creds := Credentials{
		User:         User{ID: "u9", TenantID: 9},
		Tenant:       Tenant{ID: 9, Name: "nine"},
		Token:        "tok",
		RefreshToken: "ref",
	}
	if err := c.CompleteAuthentication(creds); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completing without beginning should fail, got %v", err)
	}
	if err := c.BeginAuthentication(); err != nil {
		t.Fatalf("BeginAuthentication: %v", err)
	}
	if c.State() != StateAuthenticating {
		t.Fatalf("unexpected state %s", c.State())
	}
	bad := creds
	bad.Token = ""
	if err := c.CompleteAuthentication(bad); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected validation error got %v", err)
	}
	if err := c.CompleteAuthentication(creds); err != nil {
		t.Fatalf("CompleteAuthentication: %v", err)
	}
	if !c.IsLoggedIn() || c.CurrentUserID() != "u9" {
		t.Fatalf("expected authenticated context")
	}
	if got := c.RequestHeaders().Get("Authorization"); got != "Bearer tok" {
		t.Fatalf("expected bearer header got %q", got)
	}
	if err := c.BeginAuthentication(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition got %v", err)
	}

	c.Logout()
	if err := c.BeginAuthentication(); err != nil {
		t.Fatalf("BeginAuthentication after logout: %v", err)
	}
	c.FailAuthentication()
	if c.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated after failure, got %s", c.State())
	}
}

func TestLocalModeSendsNoAuthorization(t *testing.T) {
	t.Parallel()

	c := New(Options{Mode: ModeLocal})
	if got := c.RequestHeaders().Get("Authorization"); got != "" {
		t.Fatalf("local mode must not send credentials, got %q", got)
	}
}

type memoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

func (m *memoryStore) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, ErrNoSnapshot
	}
	cp := *m.snap
	return &cp, nil
}

func (m *memoryStore) Save(ctx context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	return nil
}

func (m *memoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}

func TestPersistAndInitFromStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memoryStore{}

	first := New(Options{Mode: ModeLocal, Store: store})
	_ = first.SetKnowledgeBases([]KnowledgeBase{{ID: "kb1", Name: "Docs"}})
	_ = first.SetCurrentKnowledgeBase(&KnowledgeBase{ID: "kb1", Name: "Docs"})
	_ = first.SetSelectedTenant(4, "four")
	if err := first.Persist(ctx); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	second := New(Options{Mode: ModeLocal, Store: store})
	if err := second.InitFromStorage(ctx); err != nil {
		t.Fatalf("InitFromStorage: %v", err)
	}
	if second.SessionID() != first.SessionID() {
		t.Fatalf("session id not restored")
	}
	if kb := second.CurrentKnowledgeBase(); kb == nil || kb.ID != "kb1" {
		t.Fatalf("current knowledge base not restored: %+v", kb)
	}
	if id, name := second.SelectedTenant(); id != 4 || name != "four" {
		t.Fatalf("selected tenant not restored: %d %q", id, name)
	}

	if err := second.Forget(ctx); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	second.Logout()
	if err := second.InitFromStorage(ctx); err != nil {
		t.Fatalf("InitFromStorage without snapshot: %v", err)
	}
	if !second.IsLoggedIn() || second.CurrentUserID() != LocalUser.ID {
		t.Fatalf("local mode should re-seed the stub identity")
	}
}

func TestInitFromStorageWithoutStoreIsNoop(t *testing.T) {
	t.Parallel()

	c := New(Options{Mode: ModeDynamic})
	if err := c.InitFromStorage(context.Background()); err != nil {
		t.Fatalf("InitFromStorage: %v", err)
	}
	if c.IsLoggedIn() {
		t.Fatalf("dynamic mode should stay logged out")
	}
}

func TestRestoreRejectsInvalidSnapshot(t *testing.T) {
	t.Parallel()

	c := New(Options{Mode: ModeDynamic})
	err := c.Restore(&Snapshot{Mode: ModeDynamic, User: &User{ID: ""}})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid got %v", err)
	}
}

func TestInitFromStorageRejectsSnapshotFromOtherMode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memoryStore{}

	local := New(Options{Mode: ModeLocal, Store: store})
	if err := local.InitFromStorage(ctx); err != nil {
		t.Fatalf("InitFromStorage: %v", err)
	}
	if err := local.Persist(ctx); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	dynamic := New(Options{Mode: ModeDynamic, Store: store})
	err := dynamic.InitFromStorage(ctx)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid got %v", err)
	}
	if dynamic.State() != StateUnauthenticated || dynamic.IsLoggedIn() {
		t.Fatalf("dynamic context should stay unauthenticated, state=%s", dynamic.State())
	}
	if auth := dynamic.RequestHeaders().Get("Authorization"); auth != "" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	t.Parallel()

	c := New(Options{Mode: ModeLocal})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.SetKnowledgeBases([]KnowledgeBase{{ID: "a"}, {ID: "b"}})
				_ = c.SetSelectedTenant(uint64(j%3), "")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				list := c.KnowledgeBases()
				if len(list) != 0 && len(list) != 2 {
					t.Errorf("observed partial list %v", list)
				}
				_ = c.EffectiveTenantID()
				_ = c.RequestHeaders()
			}
		}()
	}
	wg.Wait()
}
