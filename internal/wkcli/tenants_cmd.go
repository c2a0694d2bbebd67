package wkcli

import (
	"fmt"

	"github.com/hlong026/WeKnow-design/internal/api"
	"github.com/spf13/cobra"
)

var tenantsCmd = &cobra.Command{
	Use:     "tenants",
	Aliases: []string{"tenant"},
	Short:   "Inspect tenants and their branding",
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tenant (cross-tenant users only)",
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			items, err := rt.api.ListAllTenants(cmdContext(cmd))
			if err != nil {
				return err
			}
			return renderTenants(cmd, items)
		})
	},
}

var tenantsSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search tenants by keyword or id",
	Run: func(cmd *cobra.Command, args []string) {
		keyword, _ := cmd.Flags().GetString("keyword")
		tenantID, _ := cmd.Flags().GetUint64("tenant-id")
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		withRuntime(cmd, func(rt *runtime) error {
			result, err := rt.api.SearchTenants(cmdContext(cmd), api.SearchTenantsParams{
				Keyword:  keyword,
				TenantID: tenantID,
				Page:     page,
				PageSize: pageSize,
			})
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), result)
			}
			if err := renderTenants(cmd, result.Items); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d (%d per page), %d total\n", result.Page, result.PageSize, result.Total)
			return nil
		})
	},
}

var tenantsCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the caller's tenant",
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			tenant, err := rt.api.CurrentTenant(cmdContext(cmd))
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), tenant)
			}
			printTenantDetail(cmd, tenant)
			return nil
		})
	},
}

var tenantsBrandCmd = &cobra.Command{
	Use:   "brand -f brand.yaml",
	Short: "Replace the current tenant's brand configuration",
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		var brand api.BrandConfig
		if _, err := loadManifest(path, &brand); err != nil {
			exitWithError(cmd, err)
			return
		}
		withRuntime(cmd, func(rt *runtime) error {
			tenant, err := rt.api.UpdateBrandConfig(cmdContext(cmd), brand)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), tenant)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Brand configuration of tenant %d updated.\n", tenant.ID)
			return nil
		})
	},
}

func init() {
	tenantsSearchCmd.Flags().String("keyword", "", "Match tenant names")
	tenantsSearchCmd.Flags().Uint64("tenant-id", 0, "Match one tenant id")
	tenantsSearchCmd.Flags().Int("page", 1, "Page number")
	tenantsSearchCmd.Flags().Int("page-size", 20, "Page size")
	tenantsBrandCmd.Flags().StringP("file", "f", "", "Brand configuration (YAML or JSON, - for stdin)")

	tenantsCmd.AddCommand(tenantsListCmd)
	tenantsCmd.AddCommand(tenantsSearchCmd)
	tenantsCmd.AddCommand(tenantsCurrentCmd)
	tenantsCmd.AddCommand(tenantsBrandCmd)
}

func renderTenants(cmd *cobra.Command, items []api.TenantInfo) error {
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), items)
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tenants found.")
		return nil
	}
	tw := newTable(cmd)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tBUSINESS\tSTORAGE")
	for _, t := range items {
		storage := "-"
		if t.StorageQuota > 0 {
			storage = fmt.Sprintf("%s / %s", humanBytes(t.StorageUsed), humanBytes(t.StorageQuota))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Name, dash(t.Status), dash(t.Business), storage)
	}
	flushTable(tw)
	return nil
}

func printTenantDetail(cmd *cobra.Command, t *api.TenantInfo) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %d\n", t.ID)
	fmt.Fprintf(out, "Name:     %s\n", t.Name)
	fmt.Fprintf(out, "Status:   %s\n", dash(t.Status))
	if t.Description != "" {
		fmt.Fprintf(out, "About:    %s\n", t.Description)
	}
	if t.BrandConfig != nil && t.BrandConfig.AppName != "" {
		fmt.Fprintf(out, "App name: %s\n", t.BrandConfig.AppName)
	}
}
