package api

import (
	"context"
	"net/url"
	"strings"
)

// CreateModel registers a model.
func (s *Service) CreateModel(ctx context.Context, model ModelConfig) (*ModelConfig, error) {
	res, err := s.client.Post(ctx, "/api/v1/models", model)
	if err != nil {
		return nil, err
	}
	return decodeData[ModelConfig](res, "创建模型失败")
}

// ListModels returns configured models, optionally filtered by type.
func (s *Service) ListModels(ctx context.Context, modelType string) Listing[ModelConfig] {
	res, err := s.client.Get(ctx, "/api/v1/models")
	list := listing[ModelConfig]("list models", res, err)
	if modelType == "" || list.Err != nil {
		return list
	}
	filtered := make([]ModelConfig, 0, len(list.Items))
	for _, m := range list.Items {
		if m.Type == modelType {
			filtered = append(filtered, m)
		}
	}
	list.Items = filtered
	return list
}

// GetModel fetches one model.
func (s *Service) GetModel(ctx context.Context, id string) (*ModelConfig, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errEmptyID
	}
	res, err := s.client.Get(ctx, "/api/v1/models/"+segment(id))
	if err != nil {
		return nil, err
	}
	return decodeData[ModelConfig](res, "获取模型失败")
}

// UpdateModel applies a partial update; patch is any JSON-encodable value.
func (s *Service) UpdateModel(ctx context.Context, id string, patch interface{}) (*ModelConfig, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errEmptyID
	}
	res, err := s.client.Put(ctx, "/api/v1/models/"+segment(id), patch)
	if err != nil {
		return nil, err
	}
	return decodeData[ModelConfig](res, "更新模型失败")
}

// DeleteModel removes a model.
func (s *Service) DeleteModel(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errEmptyID
	}
	res, err := s.client.Delete(ctx, "/api/v1/models/"+segment(id), nil)
	if err != nil {
		return err
	}
	return decodeSuccess(res, "删除模型失败")
}

// ListModelProviders returns the legacy provider options for a model type.
func (s *Service) ListModelProviders(ctx context.Context, modelType string) Listing[ModelProviderOption] {
	q := url.Values{}
	if modelType != "" {
		q.Set("model_type", modelType)
	}
	res, err := s.client.Get(ctx, withQuery("/api/v1/models/providers", q))
	list := listing[ModelProviderOption]("list model providers", res, err)
	if s.opts.HideOllama && list.Err == nil {
		kept := make([]ModelProviderOption, 0, len(list.Items))
		for _, p := range list.Items {
			if !strings.EqualFold(p.Value, "ollama") {
				kept = append(kept, p)
			}
		}
		list.Items = kept
	}
	return list
}

// ListProviders returns every supported provider.
func (s *Service) ListProviders(ctx context.Context) Listing[ProviderDetail] {
	res, err := s.client.Get(ctx, "/api/v1/providers")
	list := listing[ProviderDetail]("list providers", res, err)
	if s.opts.HideOllama && list.Err == nil {
		kept := make([]ProviderDetail, 0, len(list.Items))
		for _, p := range list.Items {
			if !strings.EqualFold(p.Name, "ollama") {
				kept = append(kept, p)
			}
		}
		list.Items = kept
	}
	return list
}

// GetProvider returns one provider's details.
func (s *Service) GetProvider(ctx context.Context, name string) (*ProviderDetail, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errEmptyID
	}
	res, err := s.client.Get(ctx, "/api/v1/providers/"+segment(name))
	if err != nil {
		return nil, err
	}
	return decodeData[ProviderDetail](res, "获取厂商详情失败")
}

// GetProviderModels returns a provider's preset models.
func (s *Service) GetProviderModels(ctx context.Context, name, modelType string) Listing[PresetModel] {
	q := url.Values{}
	if modelType != "" {
		q.Set("model_type", modelType)
	}
	res, err := s.client.Get(ctx, withQuery("/api/v1/providers/"+segment(name)+"/models", q))
	return listing[PresetModel]("list provider models", res, err)
}
