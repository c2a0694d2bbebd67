package wkcli

import (
	"fmt"
	"strings"

	"github.com/hlong026/WeKnow-design/config"
	"github.com/hlong026/WeKnow-design/internal/api"
	"github.com/hlong026/WeKnow-design/internal/logutil"
	"github.com/hlong026/WeKnow-design/internal/request"
	"github.com/hlong026/WeKnow-design/internal/session"
	"github.com/hlong026/WeKnow-design/internal/sessionstore"
	"github.com/spf13/cobra"
)

// runtime bundles everything a command needs to talk to the service.
type runtime struct {
	ctx     *Context
	session *session.Context
	client  *request.Client
	api     *api.Service
	store   sessionstore.Backend
}

// newRuntime resolves the context, restores the persisted session and
// authenticates when a token is configured for dynamic mode.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	wctx, err := resolvedContext()
	if err != nil {
		return nil, err
	}
	env := envConfig
	if env == nil {
		env = config.Load()
	}

	mode, err := authMode(wctx, env)
	if err != nil {
		return nil, err
	}

	store, err := openStore(wctx, env)
	if err != nil {
		return nil, err
	}
	opts := session.Options{Mode: mode}
	if store != nil {
		opts.Store = store
	}
	sess := session.New(opts)
	if err := sess.InitFromStorage(cmdContext(cmd)); err != nil {
		logutil.Warn("discarding stored session", err, map[string]interface{}{"context": wctx.Name})
		sess = session.New(opts)
	}

	client := request.New(wctx.Server, sess)
	if env.RequestTimeout > 0 {
		client.Timeout = env.RequestTimeout
	}
	svc := api.New(client, sess, api.Options{
		HideOllama:     env.HideOllama,
		MaxUploadBytes: env.MaxFileSizeBytes(),
		ExtractTimeout: env.ExtractTimeout,
	})

	rt := &runtime{ctx: wctx, session: sess, client: client, api: svc, store: store}

	if mode == session.ModeDynamic && wctx.Token != "" {
		if !sess.IsLoggedIn() || sess.Token() != wctx.Token {
			sess.Logout()
			if err := svc.Authenticate(cmdContext(cmd), wctx.Token); err != nil {
				rt.close(cmd, false)
				return nil, err
			}
		}
	}
	if wctx.TenantID != 0 {
		if err := sess.SetSelectedTenant(wctx.TenantID, tenantName(sess, wctx.TenantID)); err != nil {
			rt.close(cmd, false)
			return nil, fmt.Errorf("select tenant %d: %w", wctx.TenantID, err)
		}
	}
	return rt, nil
}

// close persists the session unless told otherwise and releases the store.
func (rt *runtime) close(cmd *cobra.Command, persist bool) {
	if rt == nil {
		return
	}
	if persist {
		if err := rt.session.Persist(cmdContext(cmd)); err != nil {
			logutil.Warn("persist session failed", err, nil)
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			logutil.Warn("close session store failed", err, nil)
		}
	}
}

func authMode(wctx *Context, env *config.Config) (session.Mode, error) {
	if strings.TrimSpace(wctx.AuthMode) != "" {
		return session.ParseMode(wctx.AuthMode)
	}
	if env.DisableAuth {
		return session.ModeLocal, nil
	}
	return session.ModeDynamic, nil
}

func openStore(wctx *Context, env *config.Config) (sessionstore.Backend, error) {
	driver := env.SessionStoreDriver
	dsn := env.SessionStoreDSN
	if wctx.SessionStore != "" {
		driver = wctx.SessionStore
		dsn = wctx.SessionDSN
	}
	profile := wctx.Name
	if env.SessionProfile != "" && wctx.Name == "default" {
		profile = env.SessionProfile
	}
	return sessionstore.Open(sessionstore.Config{
		Driver:  driver,
		DSN:     dsn,
		Profile: profile,
		TTL:     env.SessionTTL,
		Redis: sessionstore.RedisConfig{
			Addr:        env.RedisAddr,
			Username:    env.RedisUsername,
			Password:    env.RedisPassword,
			DB:          env.RedisDB,
			TLSEnabled:  env.RedisTLSEnabled,
			TLSInsecure: env.RedisTLSInsecure,
			KeyPrefix:   env.RedisKeyPrefix,
		},
	})
}

func tenantName(sess *session.Context, id uint64) string {
	for _, t := range sess.AllTenants() {
		if t.ID == id {
			return t.Name
		}
	}
	if t := sess.Tenant(); t.ID == id {
		return t.Name
	}
	return ""
}

// withRuntime runs fn with a ready runtime and reports errors through
// exitWithError. The session is persisted afterwards.
func withRuntime(cmd *cobra.Command, fn func(rt *runtime) error) {
	rt, err := newRuntime(cmd)
	if err != nil {
		exitWithError(cmd, err)
		return
	}
	defer rt.close(cmd, true)
	if err := fn(rt); err != nil {
		exitWithError(cmd, err)
	}
}
