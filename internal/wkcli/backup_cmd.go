package wkcli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hlong026/WeKnow-design/internal/api"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and import system backups",
}

var backupOptionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Show what can be exported",
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			opts, err := rt.api.ExportOptions(cmdContext(cmd))
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), opts)
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "KEY\tLABEL\tCOUNT")
			for _, o := range opts {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", o.Key, o.Label, o.Count)
			}
			flushTable(tw)
			return nil
		})
	},
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download a backup archive",
	Run: func(cmd *cobra.Command, args []string) {
		include, _ := cmd.Flags().GetStringSlice("include")
		dest, _ := cmd.Flags().GetString("file")
		req, err := exportRequest(include)
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		withRuntime(cmd, func(rt *runtime) error {
			blob, err := rt.api.ExportData(cmdContext(cmd), req)
			if err != nil {
				return err
			}
			if dest == "" {
				dest = blob.Filename
			}
			if dest == "" {
				dest = "weknora_backup.zip"
			}
			if err := os.WriteFile(filepath.Clean(dest), blob.Data, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s (%s).\n", dest, humanBytes(int64(len(blob.Data))))
			return nil
		})
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Upload a backup archive",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		skip, _ := cmd.Flags().GetBool("skip-existing")
		quiet, _ := cmd.Flags().GetBool("quiet")
		f, err := os.Open(filepath.Clean(args[0]))
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			exitWithError(cmd, err)
			return
		}
		upload := api.Upload{Name: filepath.Base(args[0]), Size: info.Size(), Content: f}
		withRuntime(cmd, func(rt *runtime) error {
			var lastPct int64 = -1
			progress := func(sent, total int64) {
				if quiet || total <= 0 {
					return
				}
				pct := sent * 100 / total
				if pct != lastPct && (pct%10 == 0 || sent == total) {
					lastPct = pct
					printErrorLine(cmd, "Uploading %s: %d%% (%s of %s)", upload.Name, pct, humanBytes(sent), humanBytes(total))
				}
			}
			result, err := rt.api.ImportData(cmdContext(cmd), upload, skip, progress)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printImportResult(cmd, result)
			return nil
		})
	},
}

func init() {
	backupExportCmd.Flags().StringSlice("include", nil, "Tables to include: tenants,users,knowledge_bases,knowledge,chunks,sessions,messages,models,credentials,tags,agents,mcp_services (default all)")
	backupExportCmd.Flags().StringP("file", "f", "", "Output file (default: name suggested by the server)")
	backupImportCmd.Flags().Bool("skip-existing", false, "Skip records that already exist")
	backupImportCmd.Flags().BoolP("quiet", "q", false, "Do not report upload progress")

	backupCmd.AddCommand(backupOptionsCmd)
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
}

// exportRequest maps --include keys onto the request flags. No keys selects
// everything.
func exportRequest(include []string) (api.ExportRequest, error) {
	if len(include) == 0 {
		include = []string{"tenants", "users", "knowledge_bases", "knowledge", "chunks", "sessions",
			"messages", "models", "credentials", "tags", "agents", "mcp_services"}
	}
	var req api.ExportRequest
	for _, key := range include {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "tenants":
			req.IncludeTenants = true
		case "users":
			req.IncludeUsers = true
		case "knowledge_bases":
			req.IncludeKnowledgeBases = true
		case "knowledge":
			req.IncludeKnowledge = true
		case "chunks":
			req.IncludeChunks = true
		case "sessions":
			req.IncludeSessions = true
		case "messages":
			req.IncludeMessages = true
		case "models":
			req.IncludeModels = true
		case "credentials":
			req.IncludeCredentials = true
		case "tags":
			req.IncludeTags = true
		case "agents":
			req.IncludeAgents = true
		case "mcp_services":
			req.IncludeMCPServices = true
		default:
			return api.ExportRequest{}, fmt.Errorf("unknown export table %q", key)
		}
	}
	return req, nil
}

func printImportResult(cmd *cobra.Command, r *api.ImportResult) {
	tw := newTable(cmd)
	fmt.Fprintln(tw, "TABLE\tIMPORTED")
	rows := []struct {
		name  string
		count int
	}{
		{"tenants", r.TenantsImported},
		{"users", r.UsersImported},
		{"knowledge_bases", r.KnowledgeBasesImported},
		{"knowledge", r.KnowledgeImported},
		{"chunks", r.ChunksImported},
		{"sessions", r.SessionsImported},
		{"messages", r.MessagesImported},
		{"models", r.ModelsImported},
		{"credentials", r.CredentialsImported},
		{"tags", r.TagsImported},
		{"agents", r.AgentsImported},
		{"mcp_services", r.MCPServicesImported},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%d\n", row.name, row.count)
	}
	flushTable(tw)
	for _, e := range r.Errors {
		printErrorLine(cmd, "Warning: %s", e)
	}
}
