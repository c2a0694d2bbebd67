package wkcli

import (
	"fmt"

	"github.com/hlong026/WeKnow-design/internal/api"
	"github.com/spf13/cobra"
)

var socialCmd = &cobra.Command{
	Use:   "social",
	Short: "Import social media content into knowledge bases",
}

var socialExtractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Transcribe a video into a knowledge base",
	Long: `Transcribe a social media video (douyin, bilibili, ...) and add the text
to a knowledge base. Defaults to the selected knowledge base (see 'wkctl kb use').
Extraction can take several minutes; WEKNORA_EXTRACT_TIMEOUT bounds it.`,
	Run: func(cmd *cobra.Command, args []string) {
		platform, _ := cmd.Flags().GetString("platform")
		videoURL, _ := cmd.Flags().GetString("url")
		kbID, _ := cmd.Flags().GetString("kb")
		withRuntime(cmd, func(rt *runtime) error {
			if kbID == "" {
				if kb := rt.session.CurrentKnowledgeBase(); kb != nil {
					kbID = kb.ID
				}
			}
			result, err := rt.api.ExtractSocialMediaContent(cmdContext(cmd), api.ExtractContentRequest{
				Platform: platform,
				VideoURL: videoURL,
				KBID:     kbID,
			})
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			if result.KnowledgeID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Knowledge: %s\n", result.KnowledgeID)
			}
			if result.Content != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", result.Content)
			}
			return nil
		})
	},
}

var socialAliyunKeyCmd = &cobra.Command{
	Use:   "aliyun-key <kb-id> <api-key>",
	Short: "Set the Aliyun speech API key used for a knowledge base",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			msg, err := rt.api.UpdateAliyunAPIKey(cmdContext(cmd), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		})
	},
}

func init() {
	socialExtractCmd.Flags().String("platform", "douyin", "Source platform")
	socialExtractCmd.Flags().String("url", "", "Video URL")
	socialExtractCmd.Flags().String("kb", "", "Target knowledge base (default: selected)")
	socialCmd.AddCommand(socialExtractCmd)
	socialCmd.AddCommand(socialAliyunKeyCmd)
}
