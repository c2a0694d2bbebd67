package wkcli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:     "providers",
	Aliases: []string{"provider"},
	Short:   "Browse supported model providers",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers",
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			list := rt.api.ListProviders(cmdContext(cmd))
			warnDegraded(cmd, list.Err)
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), list.Items)
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tTYPES\tPRESETS")
			for _, p := range list.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.Name, p.DisplayName, strings.Join(p.SupportedTypes, ","), len(p.PresetModels))
			}
			flushTable(tw)
			return nil
		})
	},
}

var providersGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a provider's auth fields and endpoints",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			p, err := rt.api.GetProvider(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), p)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:    %s (%s)\n", p.Name, p.DisplayName)
			fmt.Fprintf(out, "Types:   %s\n", strings.Join(p.SupportedTypes, ", "))
			if p.Website != "" {
				fmt.Fprintf(out, "Website: %s\n", p.Website)
			}
			fmt.Fprintf(out, "Auth:    %s\n", dash(p.AuthConfig.Type))
			tw := newTable(cmd)
			fmt.Fprintln(tw, "FIELD\tLABEL\tTYPE\tREQUIRED")
			for _, f := range p.AuthConfig.Fields {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", f.Key, f.Label, f.Type, f.Required)
			}
			flushTable(tw)
			return nil
		})
	},
}

var providersModelsCmd = &cobra.Command{
	Use:   "models <name>",
	Short: "List a provider's preset models",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		modelType, _ := cmd.Flags().GetString("type")
		withRuntime(cmd, func(rt *runtime) error {
			list := rt.api.GetProviderModels(cmdContext(cmd), args[0], modelType)
			warnDegraded(cmd, list.Err)
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), list.Items)
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "MODEL\tTYPE\tCONTEXT\tPRICE (IN/OUT)")
			for _, m := range list.Items {
				price := "-"
				if m.Pricing != nil {
					price = fmt.Sprintf("%g/%g %s", m.Pricing.InputPrice, m.Pricing.OutputPrice, m.Pricing.Currency)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.ModelID, m.ModelType, m.ContextSize, price)
			}
			flushTable(tw)
			return nil
		})
	},
}

func init() {
	providersModelsCmd.Flags().String("type", "", "Only preset models of this type")
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersGetCmd)
	providersCmd.AddCommand(providersModelsCmd)
}
