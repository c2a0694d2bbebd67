package wkcli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
}

func flushTable(tw *tabwriter.Writer) {
	_ = tw.Flush()
}

func printErrorLine(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// readManifest reads a YAML or JSON document and returns it as JSON.
func readManifest(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("-f is required")
	}
	data, err := readInputFile(path)
	if err != nil {
		return nil, err
	}
	jsonPayload, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML to JSON: %w", err)
	}
	return jsonPayload, nil
}

// loadManifest decodes a YAML or JSON document into target.
func loadManifest(path string, target interface{}) ([]byte, error) {
	payload, err := readManifest(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return payload, nil
}

func readInputFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(filepath.Clean(path))
}
