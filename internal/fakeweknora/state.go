package fakeweknora

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type tenant struct {
	ID          uint64                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	APIKey      string                 `json:"api_key,omitempty"`
	Status      string                 `json:"status"`
	BrandConfig map[string]interface{} `json:"brand_config,omitempty"`
	CreatedAt   string                 `json:"created_at"`
	UpdatedAt   string                 `json:"updated_at"`
}

type knowledgeBase struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TenantID    uint64 `json:"tenant_id"`
	AliyunKey   string `json:"-"`
}

type state struct {
	tenants        []*tenant
	models         map[string]map[string]interface{}
	modelOrder     []string
	credentials    map[string]map[string]interface{}
	credOrder      []string
	knowledgeBases []*knowledgeBase
	nextID         int
}

const seedTime = "2026-01-01T00:00:00Z"

func seed() *state {
	return &state{
		tenants: []*tenant{
			{ID: 1, Name: "本地租户", APIKey: "local-api-key", Status: "active", CreatedAt: seedTime, UpdatedAt: seedTime},
			{ID: 2, Name: "Acme", Status: "active", CreatedAt: seedTime, UpdatedAt: seedTime},
			{ID: 3, Name: "Beta Labs", Status: "inactive", CreatedAt: seedTime, UpdatedAt: seedTime},
		},
		models:      map[string]map[string]interface{}{},
		credentials: map[string]map[string]interface{}{},
		knowledgeBases: []*knowledgeBase{
			{ID: "kb-1", Name: "产品文档", TenantID: 1},
			{ID: "kb-2", Name: "FAQ", TenantID: 1},
		},
	}
}

var providerCatalog = []gin.H{
	{
		"name":            "openai",
		"display_name":    "OpenAI",
		"description":     "OpenAI compatible API",
		"supported_types": []string{"KnowledgeQA", "Embedding"},
		"auth_config": gin.H{
			"type": "api_key",
			"fields": []gin.H{
				{"key": "api_key", "label": "API Key", "type": "password", "required": true, "placeholder": "sk-..."},
			},
		},
		"preset_models": []gin.H{
			{"model_id": "gpt-4o", "display_name": "GPT-4o", "model_type": "KnowledgeQA", "capabilities": []string{"chat", "vision"}, "context_size": 128000},
			{"model_id": "text-embedding-3-small", "display_name": "Embedding 3 Small", "model_type": "Embedding", "capabilities": []string{"embedding"}, "context_size": 8191},
		},
		"endpoints": gin.H{"chat": "https://api.openai.com/v1"},
		"features":  gin.H{"supports_streaming": true, "supports_function_call": true, "supports_vision": true, "supports_json_mode": true, "supports_custom_model": true},
	},
	{
		"name":            "ollama",
		"display_name":    "Ollama",
		"description":     "Local models served by Ollama",
		"supported_types": []string{"KnowledgeQA", "Embedding", "VLLM"},
		"auth_config":     gin.H{"type": "none", "fields": []gin.H{}},
		"preset_models":   []gin.H{},
		"endpoints":       gin.H{"chat": "http://localhost:11434"},
		"features":        gin.H{"supports_streaming": true},
	},
	{
		"name":            "aliyun",
		"display_name":    "阿里云百炼",
		"description":     "DashScope",
		"supported_types": []string{"KnowledgeQA", "Embedding", "Rerank"},
		"auth_config": gin.H{
			"type": "api_key",
			"fields": []gin.H{
				{"key": "api_key", "label": "API Key", "type": "password", "required": true, "placeholder": "sk-..."},
			},
		},
		"preset_models": []gin.H{
			{"model_id": "qwen-plus", "display_name": "通义千问 Plus", "model_type": "KnowledgeQA", "capabilities": []string{"chat"}, "context_size": 131072},
			{"model_id": "gte-rerank", "display_name": "GTE Rerank", "model_type": "Rerank", "capabilities": []string{"rerank"}, "context_size": 4000},
		},
		"endpoints": gin.H{"chat": "https://dashscope.aliyuncs.com/compatible-mode/v1"},
		"features":  gin.H{"supports_streaming": true},
	},
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"code": 0, "msg": "success", "success": true, "data": data})
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	t := *s.state.tenants[0]
	s.mu.Unlock()
	ok(c, http.StatusOK, gin.H{
		"user": gin.H{
			"id":                     "user-1",
			"username":               "admin",
			"email":                  "admin@weknora.local",
			"tenant_id":              t.ID,
			"can_access_all_tenants": true,
		},
		"tenant": t,
	})
}

func (s *Server) listTenants(c *gin.Context) {
	s.mu.Lock()
	items := make([]tenant, 0, len(s.state.tenants))
	for _, t := range s.state.tenants {
		items = append(items, *t)
	}
	s.mu.Unlock()
	ok(c, http.StatusOK, gin.H{"items": items})
}

func (s *Server) searchTenants(c *gin.Context) {
	keyword := strings.ToLower(c.Query("keyword"))
	tenantID, _ := strconv.ParseUint(c.Query("tenant_id"), 10, 64)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	s.mu.Lock()
	var matched []tenant
	for _, t := range s.state.tenants {
		if tenantID != 0 && t.ID != tenantID {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(t.Name), keyword) {
			continue
		}
		matched = append(matched, *t)
	}
	s.mu.Unlock()

	total := len(matched)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	items := append([]tenant{}, matched[start:end]...)
	ok(c, http.StatusOK, gin.H{"items": items, "total": total, "page": page, "page_size": pageSize})
}

func (s *Server) updateTenant(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid tenant id")
		return
	}
	var req struct {
		BrandConfig map[string]interface{} `json:"brand_config"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.state.tenants {
		if t.ID == id {
			t.BrandConfig = req.BrandConfig
			t.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			ok(c, http.StatusOK, *t)
			return
		}
	}
	fail(c, http.StatusNotFound, "Tenant not found")
}

func (s *Server) newID(prefix string) string {
	s.state.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.state.nextID)
}

func (s *Server) listModels(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]map[string]interface{}, 0, len(s.state.modelOrder))
	for _, id := range s.state.modelOrder {
		items = append(items, s.state.models[id])
	}
	ok(c, http.StatusOK, items)
}

func (s *Server) createModel(c *gin.Context) {
	var m map[string]interface{}
	if err := c.ShouldBindJSON(&m); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if name, _ := m["name"].(string); name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": gin.H{"code": "INVALID_MODEL", "message": "模型名称不能为空"}})
		return
	}
	s.mu.Lock()
	id := s.newID("model")
	m["id"] = id
	m["tenant_id"] = 1
	m["status"] = "active"
	s.state.models[id] = m
	s.state.modelOrder = append(s.state.modelOrder, id)
	s.mu.Unlock()
	ok(c, http.StatusCreated, m)
}

func (s *Server) getModel(c *gin.Context) {
	s.mu.Lock()
	m, found := s.state.models[c.Param("id")]
	s.mu.Unlock()
	if !found {
		fail(c, http.StatusNotFound, "Model not found")
		return
	}
	ok(c, http.StatusOK, m)
}

func (s *Server) updateModel(c *gin.Context) {
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, found := s.state.models[c.Param("id")]
	if !found {
		fail(c, http.StatusNotFound, "Model not found")
		return
	}
	if builtin, _ := m["is_builtin"].(bool); builtin {
		fail(c, http.StatusForbidden, "内置模型不可修改")
		return
	}
	for k, v := range patch {
		if k != "id" {
			m[k] = v
		}
	}
	ok(c, http.StatusOK, m)
}

func (s *Server) deleteModel(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.state.models[id]; !found {
		fail(c, http.StatusNotFound, "Model not found")
		return
	}
	delete(s.state.models, id)
	s.state.modelOrder = remove(s.state.modelOrder, id)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Model deleted"})
}

func (s *Server) listModelProviders(c *gin.Context) {
	modelType := c.Query("model_type")
	items := []gin.H{}
	for _, p := range providerCatalog {
		types := p["supported_types"].([]string)
		if modelType != "" && !contains(types, modelType) {
			continue
		}
		items = append(items, gin.H{
			"value":       p["name"],
			"label":       p["display_name"],
			"description": p["description"],
			"defaultUrls": p["endpoints"],
			"modelTypes":  types,
		})
	}
	ok(c, http.StatusOK, items)
}

func (s *Server) listProviders(c *gin.Context) {
	ok(c, http.StatusOK, providerCatalog)
}

func findProvider(name string) gin.H {
	for _, p := range providerCatalog {
		if p["name"] == name {
			return p
		}
	}
	return nil
}

func (s *Server) getProvider(c *gin.Context) {
	p := findProvider(c.Param("provider"))
	if p == nil {
		fail(c, http.StatusNotFound, "Provider not found")
		return
	}
	ok(c, http.StatusOK, p)
}

func (s *Server) getProviderModels(c *gin.Context) {
	p := findProvider(c.Param("provider"))
	if p == nil {
		fail(c, http.StatusNotFound, "Provider not found")
		return
	}
	modelType := c.Query("model_type")
	items := []gin.H{}
	for _, m := range p["preset_models"].([]gin.H) {
		if modelType == "" || m["model_type"] == modelType {
			items = append(items, m)
		}
	}
	ok(c, http.StatusOK, items)
}

func masked(cred map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(cred))
	for k, v := range cred {
		out[k] = v
	}
	if secrets, isMap := cred["credentials"].(map[string]interface{}); isMap {
		copied := make(map[string]interface{}, len(secrets))
		for k, v := range secrets {
			str, _ := v.(string)
			if k == "api_key" || k == "secret_key" {
				if len(str) > 8 {
					str = str[:4] + "****" + str[len(str)-4:]
				} else {
					str = "****"
				}
				copied[k] = str
				continue
			}
			copied[k] = v
		}
		out["credentials"] = copied
	}
	return out
}

func (s *Server) listCredentials(c *gin.Context) {
	provider := c.Query("provider")
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]map[string]interface{}, 0, len(s.state.credOrder))
	for _, id := range s.state.credOrder {
		cred := s.state.credentials[id]
		if provider != "" && cred["provider"] != provider {
			continue
		}
		items = append(items, masked(cred))
	}
	ok(c, http.StatusOK, items)
}

func (s *Server) createCredential(c *gin.Context) {
	var cred map[string]interface{}
	if err := c.ShouldBindJSON(&cred); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if p, _ := cred["provider"].(string); findProvider(p) == nil {
		fail(c, http.StatusBadRequest, "unsupported provider")
		return
	}
	s.mu.Lock()
	id := s.newID("cred")
	cred["id"] = id
	cred["tenant_id"] = 1
	cred["status"] = "active"
	s.state.credentials[id] = cred
	s.state.credOrder = append(s.state.credOrder, id)
	out := masked(cred)
	s.mu.Unlock()
	ok(c, http.StatusCreated, out)
}

func (s *Server) updateCredential(c *gin.Context) {
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, found := s.state.credentials[c.Param("id")]
	if !found {
		fail(c, http.StatusNotFound, "Credential not found")
		return
	}
	for k, v := range patch {
		if k != "id" {
			cred[k] = v
		}
	}
	ok(c, http.StatusOK, masked(cred))
}

func (s *Server) deleteCredential(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.state.credentials[id]; !found {
		fail(c, http.StatusNotFound, "Credential not found")
		return
	}
	delete(s.state.credentials, id)
	s.state.credOrder = remove(s.state.credOrder, id)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Credential deleted"})
}

func (s *Server) testCredential(c *gin.Context) {
	s.mu.Lock()
	cred, found := s.state.credentials[c.Param("id")]
	s.mu.Unlock()
	if !found {
		fail(c, http.StatusNotFound, "Credential not found")
		return
	}
	secrets, _ := cred["credentials"].(map[string]interface{})
	if key, _ := secrets["api_key"].(string); key == "" || key == "invalid" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "invalid api key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Connection test passed"})
}

func (s *Server) exportOptions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok(c, http.StatusOK, []gin.H{
		{"key": "include_tenants", "label": "租户配置", "count": 1},
		{"key": "include_knowledge_bases", "label": "知识库", "count": len(s.state.knowledgeBases)},
		{"key": "include_models", "label": "模型配置", "count": len(s.state.models)},
		{"key": "include_credentials", "label": "凭证配置", "count": len(s.state.credentials)},
	})
}

func (s *Server) exportData(c *gin.Context) {
	var req map[string]bool
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	manifest, _ := json.Marshal(req)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("manifest.json")
	if err == nil {
		_, err = w.Write(manifest)
	}
	if err == nil {
		err = zw.Close()
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	filename := fmt.Sprintf("weknora_backup_%s.zip", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func (s *Server) importData(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "No file uploaded")
		return
	}
	if s.opts.MaxImportBytes > 0 && fh.Size > s.opts.MaxImportBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "file too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid backup file")
		return
	}

	result := gin.H{"knowledge_bases_imported": len(zr.File), "tenants_imported": 1}
	if c.PostForm("skip_existing") == "true" {
		result["tenants_imported"] = 0
	}
	ok(c, http.StatusOK, result)
}

func (s *Server) extract(c *gin.Context) {
	var req struct {
		Platform string `json:"platform" binding:"required"`
		VideoURL string `json:"videoUrl" binding:"required"`
		KbID     string `json:"kbId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if s.opts.ExtractDelay > 0 {
		select {
		case <-time.After(s.opts.ExtractDelay):
		case <-c.Request.Context().Done():
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "文案提取成功",
		"data": gin.H{
			"content":     fmt.Sprintf("%s transcript of %s", req.Platform, req.VideoURL),
			"knowledgeId": "knowledge-" + req.KbID,
		},
	})
}

func (s *Server) updateAliyunKey(c *gin.Context) {
	var req struct {
		AliyunAPIKey string `json:"aliyunApiKey"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AliyunAPIKey == "" {
		fail(c, http.StatusBadRequest, "aliyunApiKey is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kb := range s.state.knowledgeBases {
		if kb.ID == c.Param("id") {
			kb.AliyunKey = req.AliyunAPIKey
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "阿里云 API Key 更新成功"})
			return
		}
	}
	fail(c, http.StatusNotFound, "Knowledge base not found")
}

// AliyunKey returns the key stored for a knowledge base.
func (s *Server) AliyunKey(kbID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kb := range s.state.knowledgeBases {
		if kb.ID == kbID {
			return kb.AliyunKey
		}
	}
	return ""
}

func (s *Server) listKnowledgeBases(c *gin.Context) {
	s.mu.Lock()
	items := make([]knowledgeBase, 0, len(s.state.knowledgeBases))
	for _, kb := range s.state.knowledgeBases {
		items = append(items, *kb)
	}
	s.mu.Unlock()
	ok(c, http.StatusOK, items)
}

func (s *Server) knowledgeChat(c *gin.Context) {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		fail(c, http.StatusBadRequest, "query is required")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	id := "msg-" + c.Param("session_id")
	parts := []string{"已收到问题：", req.Query}
	for _, part := range parts {
		writeEvent(c, gin.H{"id": id, "response_type": "answer", "content": part, "done": false})
	}
	writeEvent(c, gin.H{"id": id, "response_type": "answer", "content": "", "done": true})
}

func writeEvent(c *gin.Context, payload gin.H) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(c.Writer, "event: message\ndata: %s\n\n", data)
	c.Writer.Flush()
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
