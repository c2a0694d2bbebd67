package wkcli

import (
	"fmt"
	"strings"

	"github.com/hlong026/WeKnow-design/internal/api"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat <session-id> <query...>",
	Short: "Ask the selected knowledge base a question and stream the answer",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args[1:], " ")
		withRuntime(cmd, func(rt *runtime) error {
			if rt.session.CurrentKnowledgeBase() == nil {
				printErrorLine(cmd, "Warning: no knowledge base selected; see 'wkctl kb use'")
			}
			out := cmd.OutOrStdout()
			var events []api.ChatEvent
			err := rt.api.KnowledgeChat(cmdContext(cmd), args[0], query, func(evt api.ChatEvent) bool {
				if jsonOutput() {
					events = append(events, evt)
					return true
				}
				fmt.Fprint(out, evt.Content)
				return true
			})
			if jsonOutput() {
				if perr := printJSON(out, events); perr != nil && err == nil {
					err = perr
				}
			} else {
				fmt.Fprintln(out)
			}
			return err
		})
	},
}
