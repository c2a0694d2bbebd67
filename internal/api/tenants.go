package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/hlong026/WeKnow-design/internal/logutil"
	"github.com/hlong026/WeKnow-design/internal/session"
)

// ListAllTenants returns every tenant. It requires cross-tenant access and
// refreshes the session's tenant cache on success.
func (s *Service) ListAllTenants(ctx context.Context) ([]TenantInfo, error) {
	res, err := s.client.Get(ctx, "/api/v1/tenants/all")
	if err != nil {
		return nil, err
	}
	page, err := decodeData[TenantPage](res, "获取租户列表失败")
	if err != nil {
		return nil, err
	}
	items := page.Items
	if items == nil {
		items = []TenantInfo{}
	}
	s.cacheTenants(items)
	return items, nil
}

// SearchTenants pages through tenants matching params.
func (s *Service) SearchTenants(ctx context.Context, params SearchTenantsParams) (*TenantPage, error) {
	q := url.Values{}
	if params.Keyword != "" {
		q.Set("keyword", params.Keyword)
	}
	if params.TenantID != 0 {
		q.Set("tenant_id", strconv.FormatUint(params.TenantID, 10))
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(params.PageSize))
	}
	res, err := s.client.Get(ctx, withQuery("/api/v1/tenants/search", q))
	if err != nil {
		return nil, err
	}
	page, err := decodeData[TenantPage](res, "搜索租户失败")
	if err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []TenantInfo{}
	}
	return page, nil
}

// CurrentTenant returns the caller's tenant from /auth/me.
func (s *Service) CurrentTenant(ctx context.Context) (*TenantInfo, error) {
	res, err := s.client.Get(ctx, "/api/v1/auth/me")
	if err != nil {
		return nil, err
	}
	me, err := decodeData[struct {
		Tenant *TenantInfo `json:"tenant"`
	}](res, "获取租户信息失败")
	if err != nil {
		return nil, err
	}
	if me.Tenant == nil {
		return nil, envelopeError("", "获取租户信息失败")
	}
	return me.Tenant, nil
}

// UpdateBrandConfig replaces the current tenant's brand configuration.
func (s *Service) UpdateBrandConfig(ctx context.Context, cfg BrandConfig) (*TenantInfo, error) {
	tenant, err := s.CurrentTenant(ctx)
	if err != nil {
		return nil, fmt.Errorf("无法获取当前租户信息: %w", err)
	}
	path := "/api/v1/tenants/" + strconv.FormatUint(tenant.ID, 10)
	res, err := s.client.Put(ctx, path, map[string]interface{}{"brand_config": cfg})
	if err != nil {
		return nil, err
	}
	var env Envelope[*TenantInfo]
	if err := res.Decode(&env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, envelopeError(env.Message, "更新品牌配置失败")
	}
	if env.Data == nil {
		tenant.BrandConfig = &cfg
		return tenant, nil
	}
	return env.Data, nil
}

func (s *Service) cacheTenants(items []TenantInfo) {
	if s.session == nil || !s.session.CanAccessAllTenants() {
		return
	}
	cached := make([]session.Tenant, 0, len(items))
	for _, t := range items {
		cached = append(cached, session.Tenant{ID: t.ID, Name: t.Name, Status: t.Status})
	}
	if err := s.session.SetAllTenants(cached); err != nil {
		logutil.Debug("tenant cache not updated", map[string]interface{}{"error": err.Error()})
	}
}
