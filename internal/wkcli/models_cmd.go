package wkcli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hlong026/WeKnow-design/internal/api"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:     "models",
	Aliases: []string{"model"},
	Short:   "Manage configured models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured models",
	Run: func(cmd *cobra.Command, args []string) {
		modelType, _ := cmd.Flags().GetString("type")
		withRuntime(cmd, func(rt *runtime) error {
			list := rt.api.ListModels(cmdContext(cmd), modelType)
			warnDegraded(cmd, list.Err)
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), list.Items)
			}
			if len(list.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No models configured.")
				return nil
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSOURCE\tPROVIDER\tDEFAULT")
			for _, m := range list.Items {
				def := ""
				if m.IsDefault {
					def = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Type, m.Source, dash(m.Parameters.Provider), def)
			}
			flushTable(tw)
			return nil
		})
	},
}

var modelsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			model, err := rt.api.GetModel(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}
			return printModel(cmd, model)
		})
	},
}

var modelsCreateCmd = &cobra.Command{
	Use:   "create -f model.yaml",
	Short: "Create a model from a manifest",
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		var model api.ModelConfig
		if _, err := loadManifest(path, &model); err != nil {
			exitWithError(cmd, err)
			return
		}
		withRuntime(cmd, func(rt *runtime) error {
			created, err := rt.api.CreateModel(cmdContext(cmd), model)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model %q created (%s).\n", created.Name, created.ID)
			return nil
		})
	},
}

var modelsUpdateCmd = &cobra.Command{
	Use:   "update <id> -f patch.yaml",
	Short: "Apply a partial update to a model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		payload, err := readManifest(path)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		withRuntime(cmd, func(rt *runtime) error {
			updated, err := rt.api.UpdateModel(cmdContext(cmd), args[0], json.RawMessage(payload))
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), updated)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model %q updated.\n", updated.ID)
			return nil
		})
	},
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			if err := rt.api.DeleteModel(cmdContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model %q deleted.\n", args[0])
			return nil
		})
	},
}

var modelsDiffCmd = &cobra.Command{
	Use:   "diff <id> -f model.yaml",
	Short: "Compare a stored model with a manifest",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		var desired api.ModelConfig
		if _, err := loadManifest(path, &desired); err != nil {
			exitWithError(cmd, err)
			return
		}
		withRuntime(cmd, func(rt *runtime) error {
			current, err := rt.api.GetModel(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}
			diff := modelDiff(*current, desired)
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No differences.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), diff)
			return nil
		})
	},
}

// modelDiff compares the user-editable fields of two models.
func modelDiff(current, desired api.ModelConfig) string {
	return cmp.Diff(current, desired,
		cmpopts.IgnoreFields(api.ModelConfig{}, "ID", "TenantID", "IsBuiltin", "Status", "CreatedAt", "UpdatedAt"),
		cmpopts.EquateEmpty(),
	)
}

var modelsProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List provider options for a model type",
	Run: func(cmd *cobra.Command, args []string) {
		modelType, _ := cmd.Flags().GetString("type")
		withRuntime(cmd, func(rt *runtime) error {
			list := rt.api.ListModelProviders(cmdContext(cmd), modelType)
			warnDegraded(cmd, list.Err)
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), list.Items)
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "VALUE\tLABEL\tMODEL TYPES")
			for _, p := range list.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Value, p.Label, strings.Join(p.ModelTypes, ","))
			}
			flushTable(tw)
			return nil
		})
	},
}

func init() {
	modelsListCmd.Flags().String("type", "", "Only models of this type (KnowledgeQA, Embedding, Rerank, VLLM)")
	modelsProvidersCmd.Flags().String("type", "", "Model type to list providers for")
	modelsCreateCmd.Flags().StringP("file", "f", "", "Model manifest (YAML or JSON, - for stdin)")
	modelsUpdateCmd.Flags().StringP("file", "f", "", "Patch document (YAML or JSON, - for stdin)")
	modelsDiffCmd.Flags().StringP("file", "f", "", "Desired model manifest")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsGetCmd)
	modelsCmd.AddCommand(modelsCreateCmd)
	modelsCmd.AddCommand(modelsUpdateCmd)
	modelsCmd.AddCommand(modelsDeleteCmd)
	modelsCmd.AddCommand(modelsDiffCmd)
	modelsCmd.AddCommand(modelsProvidersCmd)
}

func printModel(cmd *cobra.Command, m *api.ModelConfig) error {
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), m)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", m.ID)
	fmt.Fprintf(out, "Name:     %s\n", m.Name)
	fmt.Fprintf(out, "Type:     %s\n", m.Type)
	fmt.Fprintf(out, "Source:   %s\n", m.Source)
	fmt.Fprintf(out, "Provider: %s\n", dash(m.Parameters.Provider))
	fmt.Fprintf(out, "Base URL: %s\n", dash(m.Parameters.BaseURL))
	if m.Parameters.APIKey != "" {
		fmt.Fprintf(out, "API key:  %s\n", api.MaskSecret(m.Parameters.APIKey))
	}
	if e := m.Parameters.EmbeddingParameters; e != nil && e.Dimension > 0 {
		fmt.Fprintf(out, "Dimension: %d\n", e.Dimension)
	}
	return nil
}

// warnDegraded reports a swallowed listing failure on stderr.
func warnDegraded(cmd *cobra.Command, err error) {
	if err != nil {
		printErrorLine(cmd, "Warning: showing partial results: %v", err)
	}
}
