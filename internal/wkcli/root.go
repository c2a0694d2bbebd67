package wkcli

import (
	"context"
	"fmt"
	"strings"

	"github.com/hlong026/WeKnow-design/config"
	"github.com/hlong026/WeKnow-design/internal/logutil"
	"github.com/spf13/cobra"
)

var (
	cfgFile        string
	contextName    string
	overrideURL    string
	overrideToken  string
	overrideTenant uint64
	outputFormat   string

	appConfig *Config
	envConfig *config.Config

	// cmdErr is the last error reported by a command; Execute returns it.
	cmdErr error
)

// Execute runs the CLI.
func Execute() error {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	cmdErr = nil
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return cmdErr
}

var rootCmd = &cobra.Command{
	Use:   "wkctl",
	Short: "Work with a WeKnora knowledge service from the terminal",
	Long: `wkctl talks to the WeKnora REST API: models, provider credentials,
tenants, backups, knowledge bases and knowledge chat.
Connection settings live in contexts (see 'wkctl config set-context'); without
one, WEKNORA_BASE_URL or --server is used.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envConfig = config.Load()
		logutil.SetLevel(envConfig.LogLevel)
		logutil.SetOutput(cmd.ErrOrStderr())
		// Config commands load/save the file manually.
		if strings.HasPrefix(cmd.CommandPath(), "wkctl config") {
			return nil
		}
		var err error
		appConfig, err = LoadConfig(cfgFile)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath(), "Path to the wkctl config file")
	rootCmd.PersistentFlags().StringVar(&contextName, "context", "", "Context name to use (overrides current)")
	rootCmd.PersistentFlags().StringVar(&overrideURL, "server", "", "Override API server URL")
	rootCmd.PersistentFlags().StringVar(&overrideToken, "token", "", "Override API token")
	rootCmd.PersistentFlags().Uint64Var(&overrideTenant, "tenant", 0, "Act on behalf of this tenant (cross-tenant users only)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table|json")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tenantsCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(socialCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(metricsCmd)
}

// resolvedContext merges config state with flag overrides. Without any
// configured context it falls back to the environment's base URL.
func resolvedContext() (*Context, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	ctxName := contextName
	if ctxName == "" {
		ctxName = appConfig.CurrentContext
	}
	ctx, ok := appConfig.Contexts[ctxName]
	switch {
	case ok:
	case contextName == "" && len(appConfig.Contexts) == 0:
		ctx = Context{Name: "default"}
		if envConfig != nil {
			ctx.Server = envConfig.BaseURL
		}
	default:
		return nil, fmt.Errorf("context %q not found; use 'wkctl config set-context'", ctxName)
	}
	if overrideURL != "" {
		ctx.Server = overrideURL
	}
	if overrideToken != "" {
		ctx.Token = overrideToken
	}
	if overrideTenant != 0 {
		ctx.TenantID = overrideTenant
	}
	if ctx.Server == "" {
		return nil, fmt.Errorf("context %q is missing a server URL", ctx.Name)
	}
	return &ctx, nil
}

func writeOutput(cmd *cobra.Command, data interface{}) error {
	switch strings.ToLower(outputFormat) {
	case "json":
		return printJSON(cmd.OutOrStdout(), data)
	case "table", "":
		// Table is handled by the caller.
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

func jsonOutput() bool {
	return strings.EqualFold(outputFormat, "json")
}

func exitWithError(cmd *cobra.Command, err error) {
	cmd.SilenceUsage = true
	cmdErr = err
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
