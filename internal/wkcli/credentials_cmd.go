package wkcli

import (
	"encoding/json"
	"fmt"

	"github.com/hlong026/WeKnow-design/internal/api"
	"github.com/spf13/cobra"
)

var credentialsCmd = &cobra.Command{
	Use:     "credentials",
	Aliases: []string{"creds"},
	Short:   "Manage provider credentials",
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credentials with secrets masked",
	Run: func(cmd *cobra.Command, args []string) {
		provider, _ := cmd.Flags().GetString("provider")
		withRuntime(cmd, func(rt *runtime) error {
			list := rt.api.ListCredentials(cmdContext(cmd), provider)
			warnDegraded(cmd, list.Err)
			masked := make([]api.ProviderCredential, 0, len(list.Items))
			for _, c := range list.Items {
				masked = append(masked, c.Masked())
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), masked)
			}
			if len(masked) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No credentials stored.")
				return nil
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "ID\tPROVIDER\tNAME\tAPI KEY\tSTATUS\tDEFAULT")
			for _, c := range masked {
				def := ""
				if c.IsDefault {
					def = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Provider, c.Name, dash(c.Credentials["api_key"]), dash(c.Status), def)
			}
			flushTable(tw)
			return nil
		})
	},
}

var credentialsCreateCmd = &cobra.Command{
	Use:   "create -f credential.yaml",
	Short: "Store a provider credential",
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		var cred api.ProviderCredential
		if _, err := loadManifest(path, &cred); err != nil {
			exitWithError(cmd, err)
			return
		}
		withRuntime(cmd, func(rt *runtime) error {
			created, err := rt.api.CreateCredential(cmdContext(cmd), cred)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), created.Masked())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credential %q created (%s).\n", created.Name, created.ID)
			return nil
		})
	},
}

var credentialsUpdateCmd = &cobra.Command{
	Use:   "update <id> -f patch.yaml",
	Short: "Apply a partial update to a credential",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		payload, err := readManifest(path)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		withRuntime(cmd, func(rt *runtime) error {
			updated, err := rt.api.UpdateCredential(cmdContext(cmd), args[0], json.RawMessage(payload))
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), updated.Masked())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credential %q updated.\n", updated.ID)
			return nil
		})
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a credential",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			if err := rt.api.DeleteCredential(cmdContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credential %q deleted.\n", args[0])
			return nil
		})
	},
}

var credentialsTestCmd = &cobra.Command{
	Use:   "test <id>",
	Short: "Test a credential against its provider",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			result, err := rt.api.TestCredential(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else if result.Success {
				fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", result.Message)
			}
			if !result.Success {
				return fmt.Errorf("credential test failed: %s", result.Message)
			}
			return nil
		})
	},
}

func init() {
	credentialsListCmd.Flags().String("provider", "", "Only credentials of this provider")
	credentialsCreateCmd.Flags().StringP("file", "f", "", "Credential manifest (YAML or JSON, - for stdin)")
	credentialsUpdateCmd.Flags().StringP("file", "f", "", "Patch document (YAML or JSON, - for stdin)")

	credentialsCmd.AddCommand(credentialsListCmd)
	credentialsCmd.AddCommand(credentialsCreateCmd)
	credentialsCmd.AddCommand(credentialsUpdateCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
	credentialsCmd.AddCommand(credentialsTestCmd)
}
