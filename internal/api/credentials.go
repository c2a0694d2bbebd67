package api

import (
	"context"
	"net/url"
	"strings"
)

// CreateCredential stores a provider credential.
func (s *Service) CreateCredential(ctx context.Context, cred ProviderCredential) (*ProviderCredential, error) {
	res, err := s.client.Post(ctx, "/api/v1/credentials", cred)
	if err != nil {
		return nil, err
	}
	return decodeData[ProviderCredential](res, "创建凭证失败")
}

// ListCredentials returns stored credentials, optionally for one provider.
func (s *Service) ListCredentials(ctx context.Context, provider string) Listing[ProviderCredential] {
	q := url.Values{}
	if provider != "" {
		q.Set("provider", provider)
	}
	res, err := s.client.Get(ctx, withQuery("/api/v1/credentials", q))
	return listing[ProviderCredential]("list credentials", res, err)
}

// UpdateCredential applies a partial update.
func (s *Service) UpdateCredential(ctx context.Context, id string, patch interface{}) (*ProviderCredential, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errEmptyID
	}
	res, err := s.client.Put(ctx, "/api/v1/credentials/"+segment(id), patch)
	if err != nil {
		return nil, err
	}
	return decodeData[ProviderCredential](res, "更新凭证失败")
}

// DeleteCredential removes a credential.
func (s *Service) DeleteCredential(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errEmptyID
	}
	res, err := s.client.Delete(ctx, "/api/v1/credentials/"+segment(id), nil)
	if err != nil {
		return err
	}
	return decodeSuccess(res, "删除凭证失败")
}

// TestCredential asks the service to try the credential against its provider.
// A failed test is a result, not an error.
func (s *Service) TestCredential(ctx context.Context, id string) (*CredentialTestResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errEmptyID
	}
	res, err := s.client.Post(ctx, "/api/v1/credentials/"+segment(id)+"/test", nil)
	if err != nil {
		return nil, err
	}
	var env Envelope[*CredentialTestResult]
	if err := res.Decode(&env); err != nil {
		return nil, err
	}
	if env.Data != nil {
		return env.Data, nil
	}
	return &CredentialTestResult{Success: env.Success, Message: env.Message}, nil
}

// MaskSecret hides all but the edges of a secret: longer than eight
// characters keeps the first and last four.
func MaskSecret(v string) string {
	if len(v) > 8 {
		return v[:4] + "****" + v[len(v)-4:]
	}
	return "****"
}

// Masked returns a copy with api_key and secret_key masked.
func (c ProviderCredential) Masked() ProviderCredential {
	out := c
	out.Credentials = make(map[string]string, len(c.Credentials))
	for k, v := range c.Credentials {
		if k == "api_key" || k == "secret_key" {
			out.Credentials[k] = MaskSecret(v)
			continue
		}
		out.Credentials[k] = v
	}
	return out
}
