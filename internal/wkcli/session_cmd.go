package wkcli

import (
	"fmt"

	"github.com/hlong026/WeKnow-design/internal/api"
	"github.com/hlong026/WeKnow-design/internal/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and edit the stored session",
}

// sessionView is the printable form of a session; the token is masked.
type sessionView struct {
	SessionID      string                 `json:"session_id,omitempty"`
	Mode           session.Mode           `json:"mode"`
	State          session.State          `json:"state"`
	Scope          session.AccessScope    `json:"scope"`
	User           session.User           `json:"user"`
	Tenant         session.Tenant         `json:"tenant"`
	Token          string                 `json:"token,omitempty"`
	SelectedTenant uint64                 `json:"selected_tenant,omitempty"`
	EffectiveID    uint64                 `json:"effective_tenant_id"`
	KnowledgeBase  *session.KnowledgeBase `json:"knowledge_base,omitempty"`
	CachedKBs      int                    `json:"cached_knowledge_bases"`
}

func viewSession(s *session.Context) sessionView {
	selected, _ := s.SelectedTenant()
	tenant := s.Tenant()
	tenant.APIKey = ""
	v := sessionView{
		SessionID:      s.SessionID(),
		Mode:           s.Mode(),
		State:          s.State(),
		Scope:          s.AccessScope(),
		User:           s.User(),
		Tenant:         tenant,
		SelectedTenant: selected,
		EffectiveID:    s.EffectiveTenantID(),
		KnowledgeBase:  s.CurrentKnowledgeBase(),
		CachedKBs:      len(s.KnowledgeBases()),
	}
	if tok := s.Token(); tok != "" {
		v.Token = api.MaskSecret(tok)
	}
	return v
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current identity and selections",
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			v := viewSession(rt.session)
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), v)
			}
			tw := newTable(cmd)
			fmt.Fprintf(tw, "Context:\t%s (%s)\n", rt.ctx.Name, rt.ctx.Server)
			fmt.Fprintf(tw, "Mode:\t%s\n", v.Mode)
			fmt.Fprintf(tw, "State:\t%s\n", v.State)
			fmt.Fprintf(tw, "User:\t%s\n", dash(userLabel(v.User)))
			fmt.Fprintf(tw, "Tenant:\t%s\n", dash(tenantLabel(v.Tenant)))
			fmt.Fprintf(tw, "Scope:\t%s\n", v.Scope)
			fmt.Fprintf(tw, "Acting tenant:\t%d\n", v.EffectiveID)
			fmt.Fprintf(tw, "Token:\t%s\n", dash(v.Token))
			kb := "-"
			if v.KnowledgeBase != nil {
				kb = fmt.Sprintf("%s (%s)", v.KnowledgeBase.Name, v.KnowledgeBase.ID)
			}
			fmt.Fprintf(tw, "Knowledge base:\t%s\n", kb)
			flushTable(tw)
			return nil
		})
	},
}

var sessionLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the identity and the stored session",
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := newRuntime(cmd)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		defer rt.close(cmd, false)
		rt.session.Logout()
		if err := rt.session.Forget(cmdContext(cmd)); err != nil {
			exitWithError(cmd, err)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	},
}

var sessionSetUserCmd = &cobra.Command{
	Use:   "set-user -f user.yaml",
	Short: "Replace the session user",
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		payload, err := readManifest(path)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		user, err := session.DecodeUser(payload)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		withRuntime(cmd, func(rt *runtime) error {
			if err := rt.session.SetUser(user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User set to %s.\n", userLabel(user))
			return nil
		})
	},
}

var sessionSetTenantCmd = &cobra.Command{
	Use:   "set-tenant -f tenant.yaml",
	Short: "Replace the session tenant",
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		payload, err := readManifest(path)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		tenant, err := session.DecodeTenant(payload)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		withRuntime(cmd, func(rt *runtime) error {
			if err := rt.session.SetTenant(tenant); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant set to %s.\n", tenantLabel(tenant))
			return nil
		})
	},
}

func init() {
	sessionSetUserCmd.Flags().StringP("file", "f", "", "User document (YAML or JSON, - for stdin)")
	sessionSetTenantCmd.Flags().StringP("file", "f", "", "Tenant document (YAML or JSON, - for stdin)")
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionLogoutCmd)
	sessionCmd.AddCommand(sessionSetUserCmd)
	sessionCmd.AddCommand(sessionSetTenantCmd)
}

func userLabel(u session.User) string {
	switch {
	case u.ID == "":
		return ""
	case u.Email != "":
		return fmt.Sprintf("%s <%s>", u.ID, u.Email)
	default:
		return u.ID
	}
}

func tenantLabel(t session.Tenant) string {
	if t.ID == 0 {
		return ""
	}
	return fmt.Sprintf("%d %s", t.ID, t.Name)
}

