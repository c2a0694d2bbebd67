package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/hlong026/WeKnow-design/internal/api"
	"github.com/hlong026/WeKnow-design/internal/fakeweknora"
	"github.com/hlong026/WeKnow-design/internal/request"
	"github.com/hlong026/WeKnow-design/internal/session"
)

type fixture struct {
	svc  *api.Service
	srv  *fakeweknora.Server
	sess *session.Context
}

func newFixture(t *testing.T, fakeOpts fakeweknora.Options, opts api.Options) fixture {
	t.Helper()
	srv := fakeweknora.New(fakeOpts)
	ts := srv.NewHTTPTest()
	t.Cleanup(ts.Close)
	sess := session.New(session.Options{Mode: session.ModeLocal})
	client := request.New(ts.URL, sess)
	return fixture{svc: api.New(client, sess, opts), srv: srv, sess: sess}
}

func TestModelLifecycle(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})
	ctx := context.Background()

	created, err := f.svc.CreateModel(ctx, api.ModelConfig{
		Name:   "qwen-plus",
		Type:   api.ModelTypeKnowledgeQA,
		Source: "remote",
		Parameters: api.ModelParameters{
			BaseURL:  "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Provider: "aliyun",
		},
	})
	if err != nil {
		t.Fatalf("CreateModel: %v", err)
	}
	if created.ID == "" || created.Status != "active" {
		t.Fatalf("unexpected created model %+v", created)
	}
	if _, err := f.svc.CreateModel(ctx, api.ModelConfig{Name: "bge", Type: api.ModelTypeEmbedding, Source: "local"}); err != nil {
		t.Fatalf("CreateModel embedding: %v", err)
	}

	got, err := f.svc.GetModel(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetModel: %v", err)
	}
	if diff := cmp.Diff(created, got); diff != "" {
		t.Fatalf("model mismatch (-created +got):\n%s", diff)
	}

	qa := f.svc.ListModels(ctx, api.ModelTypeKnowledgeQA)
	if qa.Err != nil || len(qa.Items) != 1 || qa.Items[0].ID != created.ID {
		t.Fatalf("unexpected filtered list %+v", qa)
	}
	if all := f.svc.ListModels(ctx, ""); len(all.Items) != 2 {
		t.Fatalf("expected 2 models, got %d", len(all.Items))
	}

	updated, err := f.svc.UpdateModel(ctx, created.ID, map[string]interface{}{"description": "primary chat model"})
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	if updated.Description != "primary chat model" || updated.Name != "qwen-plus" {
		t.Fatalf("unexpected updated model %+v", updated)
	}

	if err := f.svc.DeleteModel(ctx, created.ID); err != nil {
		t.Fatalf("DeleteModel: %v", err)
	}
	_, err = f.svc.GetModel(ctx, created.ID)
	var serr *request.ServiceError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusNotFound || serr.Message != "Model not found" {
		t.Fatalf("expected 404 service error, got %v", err)
	}
}

func TestCreateModelPrefersNestedErrorMessage(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})

	_, err := f.svc.CreateModel(context.Background(), api.ModelConfig{Type: api.ModelTypeRerank, Source: "remote"})
	var serr *request.ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("expected service error, got %v", err)
	}
	if serr.Message != "模型名称不能为空" || serr.Code("success") != "false" {
		t.Fatalf("unexpected service error %+v", serr)
	}
}

func TestModelIDRequired(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})
	ctx := context.Background()

	if _, err := f.svc.GetModel(ctx, " "); err == nil {
		t.Fatalf("expected empty id to be rejected")
	}
	if err := f.svc.DeleteModel(ctx, ""); err == nil {
		t.Fatalf("expected empty id to be rejected")
	}
	if len(f.srv.Requests()) != 0 {
		t.Fatalf("no request should be sent for an empty id")
	}
}

func TestListingsAreBestEffort(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})
	ctx := context.Background()

	f.srv.Fail(http.MethodGet, "/api/v1/models", http.StatusInternalServerError, gin.H{"message": "boom"})
	list := f.svc.ListModels(ctx, "")
	if list.Items == nil || len(list.Items) != 0 || !list.Degraded() {
		t.Fatalf("expected empty degraded listing, got %+v", list)
	}
	var serr *request.ServiceError
	if !errors.As(list.Err, &serr) || serr.Message != "boom" {
		t.Fatalf("expected swallowed service error, got %v", list.Err)
	}
	if _, err := list.Must(); err == nil {
		t.Fatalf("Must should surface the swallowed error")
	}

	f.srv.Fail(http.MethodGet, "/api/v1/credentials", http.StatusOK, gin.H{"success": false, "message": "denied"})
	creds := f.svc.ListCredentials(ctx, "")
	var eerr *api.EnvelopeError
	if !errors.As(creds.Err, &eerr) || eerr.Message != "denied" || len(creds.Items) != 0 {
		t.Fatalf("expected envelope error, got %+v", creds)
	}

	f.srv.Recover()
	items, err := f.svc.ListProviders(ctx).Must()
	if err != nil || len(items) != 3 {
		t.Fatalf("expected 3 providers after recovery, got %d (%v)", len(items), err)
	}
}

func TestListingNetworkFailure(t *testing.T) {
	srv := fakeweknora.New(fakeweknora.Options{})
	ts := srv.NewHTTPTest()
	url := ts.URL
	ts.Close()

	svc := api.New(request.New(url, nil), nil, api.Options{})
	list := svc.ListKnowledgeBases(context.Background())
	var nerr *request.NetworkError
	if !errors.As(list.Err, &nerr) || len(list.Items) != 0 {
		t.Fatalf("expected network failure to be swallowed, got %+v", list)
	}
}

func TestProviders(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{HideOllama: true})
	ctx := context.Background()

	options := f.svc.ListModelProviders(ctx, api.ModelTypeEmbedding)
	if options.Err != nil {
		t.Fatalf("ListModelProviders: %v", options.Err)
	}
	for _, o := range options.Items {
		if o.Value == "ollama" {
			t.Fatalf("ollama should be hidden")
		}
	}
	if len(options.Items) != 2 {
		t.Fatalf("expected openai and aliyun, got %+v", options.Items)
	}
	last, _ := f.srv.LastRequest()
	if last.RawQuery != "model_type=Embedding" {
		t.Fatalf("unexpected query %q", last.RawQuery)
	}

	if n := len(f.svc.ListProviders(ctx).Items); n != 2 {
		t.Fatalf("expected 2 visible providers, got %d", n)
	}

	detail, err := f.svc.GetProvider(ctx, "openai")
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}
	if detail.DisplayName != "OpenAI" || !detail.Features.SupportsVision || len(detail.AuthConfig.Fields) != 1 {
		t.Fatalf("unexpected provider %+v", detail)
	}
	if _, err := f.svc.GetProvider(ctx, "nope"); err == nil {
		t.Fatalf("expected unknown provider to fail")
	}

	presets := f.svc.GetProviderModels(ctx, "aliyun", api.ModelTypeRerank)
	if presets.Err != nil || len(presets.Items) != 1 || presets.Items[0].ModelID != "gte-rerank" {
		t.Fatalf("unexpected presets %+v", presets)
	}
}

func TestCredentials(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})
	ctx := context.Background()

	cred, err := f.svc.CreateCredential(ctx, api.ProviderCredential{
		Provider:    "openai",
		Name:        "team key",
		Credentials: map[string]string{"api_key": "sk-1234567890abcd", "org": "acme"},
	})
	if err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	if cred.Credentials["api_key"] != "sk-1****abcd" || cred.Credentials["org"] != "acme" {
		t.Fatalf("expected masked credentials, got %+v", cred.Credentials)
	}

	if list := f.svc.ListCredentials(ctx, "aliyun"); len(list.Items) != 0 {
		t.Fatalf("expected provider filter to exclude openai credential")
	}
	if list := f.svc.ListCredentials(ctx, "openai"); len(list.Items) != 1 {
		t.Fatalf("expected one openai credential, got %+v", list)
	}

	res, err := f.svc.TestCredential(ctx, cred.ID)
	if err != nil || !res.Success {
		t.Fatalf("expected passing test, got %+v %v", res, err)
	}

	if _, err := f.svc.UpdateCredential(ctx, cred.ID, map[string]interface{}{
		"credentials": map[string]string{"api_key": "invalid"},
	}); err != nil {
		t.Fatalf("UpdateCredential: %v", err)
	}
	res, err = f.svc.TestCredential(ctx, cred.ID)
	if err != nil {
		t.Fatalf("a failed connection test is not an error: %v", err)
	}
	if res.Success || res.Message != "invalid api key" {
		t.Fatalf("unexpected test result %+v", res)
	}

	if err := f.svc.DeleteCredential(ctx, cred.ID); err != nil {
		t.Fatalf("DeleteCredential: %v", err)
	}
	if _, err := f.svc.TestCredential(ctx, cred.ID); err == nil {
		t.Fatalf("expected deleted credential to 404")
	}
}

func TestMaskSecret(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                  "****",
		"12345678":          "****",
		"123456789":         "1234****6789",
		"sk-abcdefghijklmn": "sk-a****klmn",
	}
	for in, want := range cases {
		if got := api.MaskSecret(in); got != want {
			t.Fatalf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}

	cred := api.ProviderCredential{Credentials: map[string]string{"secret_key": "abcdefghijkl", "region": "cn"}}
	masked := cred.Masked()
	if masked.Credentials["secret_key"] != "abcd****ijkl" || masked.Credentials["region"] != "cn" {
		t.Fatalf("unexpected masked credentials %+v", masked.Credentials)
	}
	if cred.Credentials["secret_key"] != "abcdefghijkl" {
		t.Fatalf("Masked must not modify the receiver")
	}
}

func TestTenants(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})
	ctx := context.Background()

	all, err := f.svc.ListAllTenants(ctx)
	if err != nil {
		t.Fatalf("ListAllTenants: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 tenants, got %d", len(all))
	}
	if cached := f.sess.AllTenants(); len(cached) != 3 || cached[1].Name != "Acme" {
		t.Fatalf("expected tenants cached in session, got %+v", cached)
	}

	page, err := f.svc.SearchTenants(ctx, api.SearchTenantsParams{Keyword: "a", Page: 1, PageSize: 1})
	if err != nil {
		t.Fatalf("SearchTenants: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 1 || page.Items[0].Name != "Acme" {
		t.Fatalf("unexpected page %+v", page)
	}
	last, _ := f.srv.LastRequest()
	if last.RawQuery != "keyword=a&page=1&page_size=1" {
		t.Fatalf("unexpected query %q", last.RawQuery)
	}

	current, err := f.svc.CurrentTenant(ctx)
	if err != nil {
		t.Fatalf("CurrentTenant: %v", err)
	}
	if current.ID != 1 {
		t.Fatalf("unexpected current tenant %+v", current)
	}

	show := true
	updated, err := f.svc.UpdateBrandConfig(ctx, api.BrandConfig{AppName: "Acme KB", PrimaryColor: "#0052d9", ShowLogo: &show})
	if err != nil {
		t.Fatalf("UpdateBrandConfig: %v", err)
	}
	if updated.BrandConfig == nil || updated.BrandConfig.AppName != "Acme KB" {
		t.Fatalf("unexpected tenant %+v", updated)
	}
	last, _ = f.srv.LastRequest()
	if last.Method != http.MethodPut || last.Path != "/api/v1/tenants/1" {
		t.Fatalf("unexpected request %s %s", last.Method, last.Path)
	}
	var body map[string]map[string]interface{}
	if err := json.Unmarshal(last.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["brand_config"]["primary_color"] != "#0052d9" {
		t.Fatalf("unexpected body %s", last.Body)
	}
}

func TestUpdateBrandConfigNeedsCurrentTenant(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})
	f.srv.Fail(http.MethodGet, "/api/v1/auth/me", http.StatusUnauthorized, gin.H{"message": "expired"})

	_, err := f.svc.UpdateBrandConfig(context.Background(), api.BrandConfig{AppName: "x"})
	var serr *request.ServiceError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected wrapped 401, got %v", err)
	}
	for _, r := range f.srv.Requests() {
		if r.Method == http.MethodPut {
			t.Fatalf("no update should be attempted")
		}
	}
}

func TestBackupRoundTrip(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{MaxUploadBytes: 1 << 20})
	ctx := context.Background()

	options, err := f.svc.ExportOptions(ctx)
	if err != nil {
		t.Fatalf("ExportOptions: %v", err)
	}
	if len(options) != 4 || options[0].Key != "include_tenants" {
		t.Fatalf("unexpected options %+v", options)
	}

	blob, err := f.svc.ExportData(ctx, api.ExportRequest{IncludeModels: true, IncludeKnowledgeBases: true})
	if err != nil {
		t.Fatalf("ExportData: %v", err)
	}
	if blob.ContentType != "application/zip" || !strings.HasPrefix(blob.Filename, "weknora_backup_") {
		t.Fatalf("unexpected blob %s %s", blob.ContentType, blob.Filename)
	}

	var sent, total int64
	result, err := f.svc.ImportData(ctx, api.Upload{
		Name:    blob.Filename,
		Size:    int64(len(blob.Data)),
		Content: bytes.NewReader(blob.Data),
	}, true, func(s, n int64) { sent, total = s, n })
	if err != nil {
		t.Fatalf("ImportData: %v", err)
	}
	if result.KnowledgeBasesImported != 1 || result.TenantsImported != 0 {
		t.Fatalf("unexpected import result %+v", result)
	}
	if total == 0 || sent != total {
		t.Fatalf("expected completed progress, got %d/%d", sent, total)
	}

	last, _ := f.srv.LastRequest()
	if !strings.HasPrefix(last.Header.Get("Content-Type"), "multipart/form-data; boundary=") {
		t.Fatalf("unexpected content type %q", last.Header.Get("Content-Type"))
	}
	if !bytes.Contains(last.Body, []byte(`name="skip_existing"`)) || !bytes.Contains(last.Body, []byte(`name="file"`)) {
		t.Fatalf("multipart body missing fields")
	}
}

func TestImportDataRejectsOversizedFileLocally(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{MaxUploadBytes: 10})

	_, err := f.svc.ImportData(context.Background(), api.Upload{Name: "big.zip", Size: 11, Content: strings.NewReader("01234567890")}, false, nil)
	if !errors.Is(err, request.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if len(f.srv.Requests()) != 0 {
		t.Fatalf("oversized file must not be sent")
	}
}

func TestImportDataServerRejectsOversizedFile(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{MaxImportBytes: 4}, api.Options{})

	_, err := f.svc.ImportData(context.Background(), api.Upload{Name: "b.zip", Size: 8, Content: strings.NewReader("PK\x03\x04abcd")}, false, nil)
	var serr *request.ServiceError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %v", err)
	}
	if serr.Message != request.PayloadTooLargeMessage || !errors.Is(err, request.ErrPayloadTooLarge) {
		t.Fatalf("unexpected 413 error %+v", serr)
	}
}

func TestExtractSocialMediaContent(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})

	res, err := f.svc.ExtractSocialMediaContent(context.Background(), api.ExtractContentRequest{
		Platform: "douyin",
		VideoURL: "https://v.douyin.com/abc",
		KBID:     "kb-1",
	})
	if err != nil {
		t.Fatalf("ExtractSocialMediaContent: %v", err)
	}
	if res.KnowledgeID != "knowledge-kb-1" || res.Message != "文案提取成功" || !strings.Contains(res.Content, "douyin") {
		t.Fatalf("unexpected result %+v", res)
	}
	last, _ := f.srv.LastRequest()
	var body map[string]string
	if err := json.Unmarshal(last.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["videoUrl"] != "https://v.douyin.com/abc" || body["kbId"] != "kb-1" {
		t.Fatalf("unexpected body %s", last.Body)
	}

	if _, err := f.svc.ExtractSocialMediaContent(context.Background(), api.ExtractContentRequest{Platform: "douyin"}); err == nil {
		t.Fatalf("expected missing fields to be rejected")
	}
}

func TestExtractUsesItsOwnTimeout(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{ExtractDelay: 2 * time.Second}, api.Options{ExtractTimeout: 50 * time.Millisecond})

	_, err := f.svc.ExtractSocialMediaContent(context.Background(), api.ExtractContentRequest{Platform: "douyin", VideoURL: "u", KBID: "kb-1"})
	var nerr *request.NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected network error on timeout, got %v", err)
	}
}

func TestUpdateAliyunAPIKey(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})
	ctx := context.Background()

	msg, err := f.svc.UpdateAliyunAPIKey(ctx, "kb-2", "sk-aliyun")
	if err != nil {
		t.Fatalf("UpdateAliyunAPIKey: %v", err)
	}
	if msg == "" || f.srv.AliyunKey("kb-2") != "sk-aliyun" {
		t.Fatalf("key not stored (message %q)", msg)
	}
	if _, err := f.svc.UpdateAliyunAPIKey(ctx, "kb-404", "sk"); err == nil {
		t.Fatalf("expected unknown knowledge base to fail")
	}
}

func TestListKnowledgeBasesCachesSession(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})

	list := f.svc.ListKnowledgeBases(context.Background())
	if list.Err != nil || len(list.Items) != 2 {
		t.Fatalf("unexpected listing %+v", list)
	}
	cached := f.sess.KnowledgeBases()
	if len(cached) != 2 || cached[0].ID != "kb-1" || cached[1].Name != "FAQ" {
		t.Fatalf("unexpected cache %+v", cached)
	}
}

func TestKnowledgeChat(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})
	if err := f.sess.SetCurrentKnowledgeBase(&session.KnowledgeBase{ID: "kb-2", Name: "FAQ"}); err != nil {
		t.Fatalf("SetCurrentKnowledgeBase: %v", err)
	}

	var contents []string
	done := false
	err := f.svc.KnowledgeChat(context.Background(), "s-1", "如何部署？", func(evt api.ChatEvent) bool {
		if evt.ID != "msg-s-1" {
			t.Errorf("unexpected event id %q", evt.ID)
		}
		if evt.Done {
			done = true
			return true
		}
		contents = append(contents, evt.Content)
		return true
	})
	if err != nil {
		t.Fatalf("KnowledgeChat: %v", err)
	}
	if !done || strings.Join(contents, "") != "已收到问题：如何部署？" {
		t.Fatalf("unexpected stream %v done=%v", contents, done)
	}

	last, _ := f.srv.LastRequest()
	if last.Header.Get("Content-Type") != request.EventStreamContentType {
		t.Fatalf("unexpected content type %q", last.Header.Get("Content-Type"))
	}
	var body struct {
		Query string   `json:"query"`
		KBs   []string `json:"knowledge_base_ids"`
	}
	if err := json.Unmarshal(last.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Query != "如何部署？" || len(body.KBs) != 1 || body.KBs[0] != "kb-2" {
		t.Fatalf("unexpected body %s", last.Body)
	}
}

func TestKnowledgeChatStopsEarly(t *testing.T) {
	f := newFixture(t, fakeweknora.Options{}, api.Options{})

	calls := 0
	err := f.svc.KnowledgeChat(context.Background(), "s-1", "hi", func(api.ChatEvent) bool {
		calls++
		return false
	})
	if err != nil || calls != 1 {
		t.Fatalf("expected one call and no error, got %d %v", calls, err)
	}
}

func TestBearerTokenInDynamicMode(t *testing.T) {
	srv := fakeweknora.New(fakeweknora.Options{Token: "tok-1"})
	ts := srv.NewHTTPTest()
	t.Cleanup(ts.Close)

	sess := session.New(session.Options{Mode: session.ModeDynamic})
	svc := api.New(request.New(ts.URL, sess), sess, api.Options{})
	ctx := context.Background()

	_, err := svc.CurrentTenant(ctx)
	var serr *request.ServiceError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusUnauthorized || serr.Message != "unauthorized" {
		t.Fatalf("expected 401 before login, got %v", err)
	}

	if err := sess.BeginAuthentication(); err != nil {
		t.Fatalf("BeginAuthentication: %v", err)
	}
	if err := sess.CompleteAuthentication(session.Credentials{
		User:   session.User{ID: "u1", TenantID: 2},
		Tenant: session.Tenant{ID: 2, Name: "Acme"},
		Token:  "tok-1",
	}); err != nil {
		t.Fatalf("CompleteAuthentication: %v", err)
	}
	if _, err := svc.CurrentTenant(ctx); err != nil {
		t.Fatalf("CurrentTenant after login: %v", err)
	}
	last, _ := srv.LastRequest()
	if last.Header.Get("Authorization") != "Bearer tok-1" {
		t.Fatalf("missing bearer token, got %q", last.Header.Get("Authorization"))
	}
}

func TestAuthenticate(t *testing.T) {
	srv := fakeweknora.New(fakeweknora.Options{Token: "tok-2"})
	ts := srv.NewHTTPTest()
	t.Cleanup(ts.Close)

	sess := session.New(session.Options{Mode: session.ModeDynamic})
	svc := api.New(request.New(ts.URL, sess), sess, api.Options{})
	ctx := context.Background()

	err := svc.Authenticate(ctx, "wrong")
	var serr *request.ServiceError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if sess.State() != session.StateUnauthenticated {
		t.Fatalf("failed exchange should leave the session unauthenticated, got %s", sess.State())
	}

	if err := svc.Authenticate(ctx, "tok-2"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !sess.IsLoggedIn() || sess.CurrentUserID() != "user-1" || sess.CurrentTenantID() != 1 {
		t.Fatalf("unexpected session after login: user %q tenant %d", sess.CurrentUserID(), sess.CurrentTenantID())
	}
	if err := svc.Authenticate(ctx, "tok-2"); !errors.Is(err, session.ErrInvalidTransition) {
		t.Fatalf("expected second exchange to be rejected, got %v", err)
	}
}
