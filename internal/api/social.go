package api

import (
	"context"
	"errors"
	"strings"

	"github.com/hlong026/WeKnow-design/internal/request"
)

// ExtractSocialMediaContent transcribes a video into a knowledge entry. It
// waits up to the extraction timeout rather than the client default.
func (s *Service) ExtractSocialMediaContent(ctx context.Context, req ExtractContentRequest) (*ExtractContentResult, error) {
	if req.Platform == "" || req.VideoURL == "" || req.KBID == "" {
		return nil, errors.New("platform, video url and knowledge base id are required")
	}
	res, err := s.client.Post(ctx, "/api/v1/social-media/extract", req, request.WithTimeout(s.opts.ExtractTimeout))
	if err != nil {
		return nil, err
	}
	var env Envelope[*ExtractContentResult]
	if err := res.Decode(&env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, envelopeError(env.Message, "文案提取失败")
	}
	out := &ExtractContentResult{}
	if env.Data != nil {
		out = env.Data
	}
	out.Message = env.Message
	return out, nil
}

// UpdateAliyunAPIKey sets the Aliyun key a knowledge base uses for extraction.
func (s *Service) UpdateAliyunAPIKey(ctx context.Context, kbID, key string) (string, error) {
	if strings.TrimSpace(kbID) == "" {
		return "", errEmptyID
	}
	res, err := s.client.Put(ctx, "/api/v1/initialization/kb/"+segment(kbID)+"/aliyun-api-key", map[string]string{"aliyunApiKey": key})
	if err != nil {
		return "", err
	}
	var env Envelope[struct{}]
	if err := res.Decode(&env); err != nil {
		return "", err
	}
	if !env.Success {
		return "", envelopeError(env.Message, "更新阿里云 API Key 失败")
	}
	return env.Message, nil
}
