package wkcli

import (
	"fmt"

	"github.com/hlong026/WeKnow-design/internal/session"
	"github.com/spf13/cobra"
)

var kbCmd = &cobra.Command{
	Use:     "kb",
	Aliases: []string{"knowledge-bases"},
	Short:   "List and select knowledge bases",
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge bases (falls back to the cached list when the service is unreachable)",
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			list := rt.api.ListKnowledgeBases(cmdContext(cmd))
			items := list.Items
			if list.Degraded() {
				items = rt.session.KnowledgeBases()
				printErrorLine(cmd, "Warning: showing cached knowledge bases: %v", list.Err)
			}
			return renderKnowledgeBases(cmd, items, rt.session.CurrentKnowledgeBase())
		})
	},
}

var kbUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Select the knowledge base used by chat and extraction",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			kb := findKnowledgeBase(rt.session.KnowledgeBases(), args[0])
			if kb == nil {
				list := rt.api.ListKnowledgeBases(cmdContext(cmd))
				if list.Err != nil {
					return list.Err
				}
				kb = findKnowledgeBase(list.Items, args[0])
			}
			if kb == nil {
				return fmt.Errorf("knowledge base %q not found", args[0])
			}
			if err := rt.session.SetCurrentKnowledgeBase(kb); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Using knowledge base %q (%s).\n", kb.Name, kb.ID)
			return nil
		})
	},
}

var kbCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the selected knowledge base",
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			kb := rt.session.CurrentKnowledgeBase()
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), kb)
			}
			if kb == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No knowledge base selected.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", kb.ID, kb.Name)
			return nil
		})
	},
}

func init() {
	kbCmd.AddCommand(kbListCmd)
	kbCmd.AddCommand(kbUseCmd)
	kbCmd.AddCommand(kbCurrentCmd)
}

func findKnowledgeBase(list []session.KnowledgeBase, id string) *session.KnowledgeBase {
	for i := range list {
		if list[i].ID == id {
			kb := list[i]
			return &kb
		}
	}
	return nil
}

func renderKnowledgeBases(cmd *cobra.Command, items []session.KnowledgeBase, current *session.KnowledgeBase) error {
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), items)
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No knowledge bases found.")
		return nil
	}
	tw := newTable(cmd)
	fmt.Fprintln(tw, "CURRENT\tID\tNAME\tDESCRIPTION")
	for _, kb := range items {
		mark := ""
		if current != nil && current.ID == kb.ID {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, kb.ID, kb.Name, dash(kb.Description))
	}
	flushTable(tw)
	return nil
}
