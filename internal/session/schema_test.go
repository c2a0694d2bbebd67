package session

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecodeUser(t *testing.T) {
	t.Parallel()

	u, err := DecodeUser([]byte(`{"id":"u1","username":"alice","email":"alice@example.com","tenant_id":2,"can_access_all_tenants":false}`))
	if err != nil {
		t.Fatalf("DecodeUser: %v", err)
	}
	if u.ID != "u1" || u.TenantID != 2 || u.CanAccessAllTenants {
		t.Fatalf("unexpected user %+v", u)
	}

	for _, raw := range []string{
		`{"tenant_id":2}`,
		`{"id":"u1","tenant_id":0}`,
		`{"id":"u1","tenant_id":"2"}`,
		`[]`,
		`{`,
	} {
		if _, err := DecodeUser([]byte(raw)); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected ErrInvalid for %s, got %v", raw, err)
		}
	}
}

func TestDecodeTenant(t *testing.T) {
	t.Parallel()

	if _, err := DecodeTenant([]byte(`{"id":1,"name":"本地租户","status":"active"}`)); err != nil {
		t.Fatalf("DecodeTenant: %v", err)
	}
	if _, err := DecodeTenant([]byte(`{"id":1,"name":"x","status":"gone"}`)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected status to be rejected, got %v", err)
	}
}

func TestDecodeSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := New(Options{Mode: ModeLocal, Now: func() time.Time { return now }})
	_ = c.SetCurrentKnowledgeBase(&KnowledgeBase{ID: "kb", Name: "Docs"})

	raw, err := json.Marshal(c.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	snap, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if snap.User == nil || snap.User.ID != LocalUser.ID || !snap.SavedAt.Equal(now) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if _, err := DecodeSnapshot([]byte(`{"session_id":"x","mode":"cloud"}`)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected unknown mode to be rejected, got %v", err)
	}
}
