package wkcli

import (
	"fmt"
	"sort"

	"github.com/hlong026/WeKnow-design/internal/api"
	"github.com/hlong026/WeKnow-design/internal/session"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configSetContextCmd = &cobra.Command{
	Use:   "set-context <name>",
	Short: "Create or update a context",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		server, _ := cmd.Flags().GetString("server")
		token, _ := cmd.Flags().GetString("token")
		tenant, _ := cmd.Flags().GetUint64("tenant")
		mode, _ := cmd.Flags().GetString("auth-mode")
		store, _ := cmd.Flags().GetString("session-store")
		dsn, _ := cmd.Flags().GetString("session-dsn")
		makeCurrent, _ := cmd.Flags().GetBool("current")

		if server == "" {
			exitWithError(cmd, fmt.Errorf("--server is required"))
			return
		}
		if mode != "" {
			if _, err := session.ParseMode(mode); err != nil {
				exitWithError(cmd, err)
				return
			}
		}
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		ctx := Context{
			Name:         name,
			Server:       server,
			Token:        token,
			TenantID:     tenant,
			AuthMode:     mode,
			SessionStore: store,
			SessionDSN:   dsn,
		}
		setContext(cfg, ctx, makeCurrent)
		if err := SaveConfig(cfg, cfgFile); err != nil {
			exitWithError(cmd, err)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Context %q updated.\n", name)
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Switch the current context",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		if err := ensureContextExists(cfg, args[0]); err != nil {
			exitWithError(cmd, err)
			return
		}
		cfg.CurrentContext = args[0]
		if err := SaveConfig(cfg, cfgFile); err != nil {
			exitWithError(cmd, err)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q.\n", args[0])
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Print the current context",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		if cfg.CurrentContext == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No context configured.")
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the configuration with tokens masked",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		names := make([]string, 0, len(cfg.Contexts))
		for name, ctx := range cfg.Contexts {
			if ctx.Token != "" {
				ctx.Token = api.MaskSecret(ctx.Token)
				cfg.Contexts[name] = ctx
			}
			names = append(names, name)
		}
		sort.Strings(names)
		if jsonOutput() {
			if err := printJSON(cmd.OutOrStdout(), cfg); err != nil {
				exitWithError(cmd, err)
			}
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", cfgFile)
		tw := newTable(cmd)
		fmt.Fprintln(tw, "CURRENT\tNAME\tSERVER\tAUTH\tTENANT\tSESSION STORE")
		for _, name := range names {
			ctx := cfg.Contexts[name]
			current := ""
			if cfg.CurrentContext == name {
				current = "*"
			}
			tenant := "-"
			if ctx.TenantID != 0 {
				tenant = fmt.Sprint(ctx.TenantID)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", current, name, ctx.Server, dash(ctx.AuthMode), tenant, dash(ctx.SessionStore))
		}
		flushTable(tw)
	},
}

func init() {
	configSetContextCmd.Flags().String("server", "", "API server URL, e.g. http://localhost:8080")
	configSetContextCmd.Flags().String("token", "", "API token (dynamic auth mode)")
	configSetContextCmd.Flags().Uint64("tenant", 0, "Tenant to act on (cross-tenant users only)")
	configSetContextCmd.Flags().String("auth-mode", "", "local or dynamic (default from WEKNORA_DISABLE_AUTH)")
	configSetContextCmd.Flags().String("session-store", "", "Session store: none|file|sqlite|postgres|redis")
	configSetContextCmd.Flags().String("session-dsn", "", "Session store path, DSN or redis address")
	configSetContextCmd.Flags().Bool("current", true, "Set as current context")
	configCmd.AddCommand(configSetContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configCurrentContextCmd)
	configCmd.AddCommand(configViewCmd)
}
