package session

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var (
	// ErrInvalid matches every *ValidationError.
	ErrInvalid = errors.New("invalid session input")
	// ErrScopeDenied is returned when a tenant switch needs cross-tenant access.
	ErrScopeDenied = errors.New("cross-tenant access not permitted")
	// ErrInvalidTransition is returned for an out-of-order authentication step.
	ErrInvalidTransition = errors.New("invalid authentication state transition")
	// ErrNoSnapshot is returned by stores that hold nothing for the profile.
	ErrNoSnapshot = errors.New("no stored session")
)

// ValidationError reports a rejected setter argument.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Mode selects between the fixed local identity and a dynamic one.
type Mode string

const (
	ModeLocal   Mode = "local"
	ModeDynamic Mode = "dynamic"
)

// ParseMode maps a config value to a Mode. Empty selects ModeLocal.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLocal:
		return ModeLocal, nil
	case ModeDynamic:
		return ModeDynamic, nil
	}
	return "", fmt.Errorf("unknown auth mode %q (expected local or dynamic)", s)
}

// State is the authentication state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
)

// AccessScope says which tenants the user may act on.
type AccessScope string

const (
	ScopeSelf       AccessScope = "self"
	ScopeAllTenants AccessScope = "all_tenants"
)

// User is the acting user.
type User struct {
	ID                  string `json:"id"`
	Username            string `json:"username,omitempty"`
	Email               string `json:"email,omitempty"`
	TenantID            uint64 `json:"tenant_id"`
	CanAccessAllTenants bool   `json:"can_access_all_tenants"`
}

// Validate checks the fields the context relies on.
func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return invalid("user", "id is required")
	}
	if u.TenantID == 0 {
		return invalid("user", "tenant_id must be positive")
	}
	if u.Email != "" {
		if _, err := mail.ParseAddress(u.Email); err != nil {
			return invalid("user", "email %q is malformed", u.Email)
		}
	}
	return nil
}

// Tenant is the tenant the user belongs to.
type Tenant struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	APIKey string `json:"api_key,omitempty"`
	Status string `json:"status,omitempty"`
}

var tenantStatuses = map[string]bool{"": true, "active": true, "inactive": true, "suspended": true}

// Validate checks the tenant record.
func (t Tenant) Validate() error {
	if t.ID == 0 {
		return invalid("tenant", "id must be positive")
	}
	if strings.TrimSpace(t.Name) == "" {
		return invalid("tenant", "name is required")
	}
	if !tenantStatuses[t.Status] {
		return invalid("tenant", "unknown status %q", t.Status)
	}
	return nil
}

// KnowledgeBase is a cached knowledge-base entry.
type KnowledgeBase struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TenantID    uint64    `json:"tenant_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Validate checks the entry has an id.
func (kb KnowledgeBase) Validate() error {
	if strings.TrimSpace(kb.ID) == "" {
		return invalid("knowledge base", "id is required")
	}
	return nil
}

func validateToken(field, value string) error {
	if value == "" {
		return invalid(field, "must not be empty")
	}
	if strings.ContainsAny(value, " \t\r\n") {
		return invalid(field, "must not contain whitespace")
	}
	return nil
}

// Credentials completes an authentication exchange.
type Credentials struct {
	User         User
	Tenant       Tenant
	Token        string
	RefreshToken string
}

// Snapshot is the persisted form of a context.
type Snapshot struct {
	SessionID            string          `json:"session_id"`
	Mode                 Mode            `json:"mode"`
	User                 *User           `json:"user,omitempty"`
	Tenant               *Tenant         `json:"tenant,omitempty"`
	Token                string          `json:"token,omitempty"`
	RefreshToken         string          `json:"refresh_token,omitempty"`
	SelectedTenantID     uint64          `json:"selected_tenant_id,omitempty"`
	SelectedTenantName   string          `json:"selected_tenant_name,omitempty"`
	CurrentKnowledgeBase *KnowledgeBase  `json:"current_knowledge_base,omitempty"`
	KnowledgeBases       []KnowledgeBase `json:"knowledge_bases,omitempty"`
	SavedAt              time.Time       `json:"saved_at"`
}
