package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hlong026/WeKnow-design/internal/logutil"
	"github.com/hlong026/WeKnow-design/internal/request"
	"github.com/hlong026/WeKnow-design/internal/session"
)

// ListKnowledgeBases returns the tenant's knowledge bases and caches them in
// the session.
func (s *Service) ListKnowledgeBases(ctx context.Context) Listing[session.KnowledgeBase] {
	res, err := s.client.Get(ctx, "/api/v1/knowledge-bases")
	list := listing[session.KnowledgeBase]("list knowledge bases", res, err)
	if list.Err != nil || s.session == nil {
		return list
	}
	if err := s.session.SetKnowledgeBases(list.Items); err != nil {
		logutil.Warn("knowledge base cache not updated", err, nil)
	}
	return list
}

// KnowledgeChat streams an answer for query in chat session sessionID. fn is
// called per event; returning false stops reading.
func (s *Service) KnowledgeChat(ctx context.Context, sessionID, query string, fn func(ChatEvent) bool) error {
	if strings.TrimSpace(sessionID) == "" {
		return errEmptyID
	}
	body := map[string]interface{}{"query": query}
	if kb := s.currentKnowledgeBase(); kb != "" {
		body["knowledge_base_ids"] = []string{kb}
	}
	resp, err := s.client.PostStream(ctx, "/api/v1/knowledge-chat/"+segment(sessionID), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var decodeErr error
	err = request.ReadEvents(ctx, resp.Body, func(evt request.Event) bool {
		var chunk ChatEvent
		if err := json.Unmarshal([]byte(evt.Data), &chunk); err != nil {
			decodeErr = fmt.Errorf("decode chat event: %w", err)
			return false
		}
		if chunk.ID == "" {
			chunk.ID = evt.ID
		}
		if chunk.ResponseType == "" {
			chunk.ResponseType = evt.Type
		}
		if fn != nil && !fn(chunk) {
			return false
		}
		return !chunk.Done
	})
	if err != nil {
		return err
	}
	return decodeErr
}

func (s *Service) currentKnowledgeBase() string {
	if s.session == nil {
		return ""
	}
	if kb := s.session.CurrentKnowledgeBase(); kb != nil {
		return kb.ID
	}
	return ""
}
