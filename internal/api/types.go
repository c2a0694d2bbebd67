package api

// Model types accepted by the service.
const (
	ModelTypeKnowledgeQA = "KnowledgeQA"
	ModelTypeEmbedding   = "Embedding"
	ModelTypeRerank      = "Rerank"
	ModelTypeVLLM        = "VLLM"
)

// ModelConfig is a configured model.
type ModelConfig struct {
	ID          string          `json:"id,omitempty"`
	TenantID    uint64          `json:"tenant_id,omitempty"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Source      string          `json:"source"`
	Description string          `json:"description,omitempty"`
	Parameters  ModelParameters `json:"parameters"`
	IsDefault   bool            `json:"is_default,omitempty"`
	IsBuiltin   bool            `json:"is_builtin,omitempty"`
	Status      string          `json:"status,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

type ModelParameters struct {
	BaseURL             string               `json:"base_url,omitempty"`
	APIKey              string               `json:"api_key,omitempty"`
	Provider            string               `json:"provider,omitempty"`
	EmbeddingParameters *EmbeddingParameters `json:"embedding_parameters,omitempty"`
	InterfaceType       string               `json:"interface_type,omitempty"`
	ParameterSize       string               `json:"parameter_size,omitempty"`
	ExtraConfig         map[string]string    `json:"extra_config,omitempty"`
}

type EmbeddingParameters struct {
	Dimension            int `json:"dimension,omitempty"`
	TruncatePromptTokens int `json:"truncate_prompt_tokens,omitempty"`
}

// ModelProviderOption is the legacy provider listing entry.
type ModelProviderOption struct {
	Value       string            `json:"value"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	DefaultURLs map[string]string `json:"defaultUrls"`
	ModelTypes  []string          `json:"modelTypes"`
}

// ProviderDetail describes a provider and its preset models.
type ProviderDetail struct {
	Name           string            `json:"name"`
	DisplayName    string            `json:"display_name"`
	Description    string            `json:"description"`
	Icon           string            `json:"icon,omitempty"`
	Website        string            `json:"website,omitempty"`
	DocsURL        string            `json:"docs_url,omitempty"`
	AuthConfig     AuthConfig        `json:"auth_config"`
	SupportedTypes []string          `json:"supported_types"`
	PresetModels   []PresetModel     `json:"preset_models"`
	Endpoints      map[string]string `json:"endpoints"`
	Features       ProviderFeatures  `json:"features"`
}

type AuthConfig struct {
	Type     string      `json:"type"`
	Fields   []AuthField `json:"fields"`
	HelpText string      `json:"help_text,omitempty"`
	HelpURL  string      `json:"help_url,omitempty"`
}

type AuthField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder"`
	HelpText    string `json:"help_text,omitempty"`
}

type ProviderFeatures struct {
	SupportsStreaming    bool `json:"supports_streaming"`
	SupportsFunctionCall bool `json:"supports_function_call"`
	SupportsVision       bool `json:"supports_vision"`
	SupportsJSONMode     bool `json:"supports_json_mode"`
	SupportsCustomModel  bool `json:"supports_custom_model"`
}

type PresetModel struct {
	ModelID      string   `json:"model_id"`
	DisplayName  string   `json:"display_name"`
	ModelType    string   `json:"model_type"`
	Capabilities []string `json:"capabilities"`
	ContextSize  int      `json:"context_size"`
	Pricing      *Pricing `json:"pricing,omitempty"`
	Deprecated   bool     `json:"deprecated,omitempty"`
}

type Pricing struct {
	InputPrice  float64 `json:"input_price"`
	OutputPrice float64 `json:"output_price"`
	Currency    string  `json:"currency"`
}

// ProviderCredential is a stored provider credential.
type ProviderCredential struct {
	ID          string            `json:"id,omitempty"`
	TenantID    uint64            `json:"tenant_id,omitempty"`
	Provider    string            `json:"provider"`
	Name        string            `json:"name"`
	Credentials map[string]string `json:"credentials"`
	BaseURL     string            `json:"base_url,omitempty"`
	IsDefault   bool              `json:"is_default,omitempty"`
	Status      string            `json:"status,omitempty"`
	QuotaConfig *QuotaConfig      `json:"quota_config,omitempty"`
	CreatedAt   string            `json:"created_at,omitempty"`
	UpdatedAt   string            `json:"updated_at,omitempty"`
}

type QuotaConfig struct {
	DailyLimit     int64   `json:"daily_limit,omitempty"`
	MonthlyLimit   int64   `json:"monthly_limit,omitempty"`
	TokenLimit     int64   `json:"token_limit,omitempty"`
	AlertThreshold float64 `json:"alert_threshold,omitempty"`
}

// CredentialTestResult is the outcome of a connection test.
type CredentialTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BrandConfig customizes the tenant's UI.
type BrandConfig struct {
	AppName        string `json:"app_name,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
	FaviconURL     string `json:"favicon_url,omitempty"`
	PrimaryColor   string `json:"primary_color,omitempty"`
	WelcomeMessage string `json:"welcome_message,omitempty"`
	FooterText     string `json:"footer_text,omitempty"`
	CopyrightText  string `json:"copyright_text,omitempty"`
	ShowLogo       *bool  `json:"show_logo,omitempty"`
}

// TenantInfo is a tenant as returned by the tenant endpoints.
type TenantInfo struct {
	ID           uint64       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	APIKey       string       `json:"api_key,omitempty"`
	Status       string       `json:"status,omitempty"`
	Business     string       `json:"business,omitempty"`
	StorageQuota int64        `json:"storage_quota,omitempty"`
	StorageUsed  int64        `json:"storage_used,omitempty"`
	BrandConfig  *BrandConfig `json:"brand_config,omitempty"`
	CreatedAt    string       `json:"created_at"`
	UpdatedAt    string       `json:"updated_at"`
}

type SearchTenantsParams struct {
	Keyword  string
	TenantID uint64
	Page     int
	PageSize int
}

type TenantPage struct {
	Items    []TenantInfo `json:"items"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

type ExportOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// ExportRequest selects what a backup contains.
type ExportRequest struct {
	IncludeTenants        bool `json:"include_tenants,omitempty"`
	IncludeUsers          bool `json:"include_users,omitempty"`
	IncludeKnowledgeBases bool `json:"include_knowledge_bases,omitempty"`
	IncludeKnowledge      bool `json:"include_knowledge,omitempty"`
	IncludeChunks         bool `json:"include_chunks,omitempty"`
	IncludeSessions       bool `json:"include_sessions,omitempty"`
	IncludeMessages       bool `json:"include_messages,omitempty"`
	IncludeModels         bool `json:"include_models,omitempty"`
	IncludeCredentials    bool `json:"include_credentials,omitempty"`
	IncludeTags           bool `json:"include_tags,omitempty"`
	IncludeAgents         bool `json:"include_agents,omitempty"`
	IncludeMCPServices    bool `json:"include_mcp_services,omitempty"`
}

type ImportResult struct {
	TenantsImported        int      `json:"tenants_imported"`
	UsersImported          int      `json:"users_imported"`
	KnowledgeBasesImported int      `json:"knowledge_bases_imported"`
	KnowledgeImported      int      `json:"knowledge_imported"`
	ChunksImported         int      `json:"chunks_imported"`
	SessionsImported       int      `json:"sessions_imported"`
	MessagesImported       int      `json:"messages_imported"`
	ModelsImported         int      `json:"models_imported"`
	CredentialsImported    int      `json:"credentials_imported"`
	TagsImported           int      `json:"tags_imported"`
	AgentsImported         int      `json:"agents_imported"`
	MCPServicesImported    int      `json:"mcp_services_imported"`
	Errors                 []string `json:"errors,omitempty"`
}

// ExtractContentRequest asks the service to transcribe a social media video
// into a knowledge base.
type ExtractContentRequest struct {
	Platform string `json:"platform"`
	VideoURL string `json:"videoUrl"`
	KBID     string `json:"kbId"`
}

type ExtractContentResult struct {
	Message     string `json:"message"`
	Content     string `json:"content"`
	KnowledgeID string `json:"knowledgeId"`
}

// ChatEvent is one chunk of a streamed knowledge chat answer.
type ChatEvent struct {
	ID           string `json:"id"`
	ResponseType string `json:"response_type"`
	Content      string `json:"content"`
	Done         bool   `json:"done"`
}
