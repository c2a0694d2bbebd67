package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hlong026/WeKnow-design/internal/request"
	"github.com/hlong026/WeKnow-design/internal/session"
)

// Authenticate exchanges token for the caller's identity via /auth/me and
// installs it in the session. The session is left unauthenticated on failure.
func (s *Service) Authenticate(ctx context.Context, token string) error {
	if s.session == nil {
		return errors.New("authenticate requires a session")
	}
	if err := s.session.BeginAuthentication(); err != nil {
		return err
	}
	creds, err := s.fetchIdentity(ctx, token)
	if err == nil {
		err = s.session.CompleteAuthentication(*creds)
	}
	if err != nil {
		s.session.FailAuthentication()
		return fmt.Errorf("authenticate: %w", err)
	}
	return nil
}

func (s *Service) fetchIdentity(ctx context.Context, token string) (*session.Credentials, error) {
	res, err := s.client.Get(ctx, "/api/v1/auth/me", request.WithHeader("Authorization", "Bearer "+token))
	if err != nil {
		return nil, err
	}
	me, err := decodeData[struct {
		User   json.RawMessage `json:"user"`
		Tenant json.RawMessage `json:"tenant"`
	}](res, "获取用户信息失败")
	if err != nil {
		return nil, err
	}
	user, err := session.DecodeUser(me.User)
	if err != nil {
		return nil, err
	}
	tenant, err := session.DecodeTenant(me.Tenant)
	if err != nil {
		return nil, err
	}
	return &session.Credentials{User: user, Tenant: tenant, Token: token}, nil
}
