package wkcli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hlong026/WeKnow-design/internal/metrics"
	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Inspect client-side request metrics",
}

var metricsProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Issue a few read-only calls and show the recorded request metrics",
	Run: func(cmd *cobra.Command, args []string) {
		withRuntime(cmd, func(rt *runtime) error {
			if _, err := rt.api.CurrentTenant(cmdContext(cmd)); err != nil {
				printErrorLine(cmd, "Warning: current tenant: %v", err)
			}
			warnDegraded(cmd, rt.api.ListModels(cmdContext(cmd), "").Err)
			samples, err := metrics.Snapshot()
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), samples)
			}
			printMetricsSamples(cmd, samples)
			return nil
		})
	},
}

func init() {
	metricsCmd.AddCommand(metricsProbeCmd)
}

func printMetricsSamples(cmd *cobra.Command, samples []metrics.Sample) {
	if len(samples) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No requests recorded.")
		return
	}
	tw := newTable(cmd)
	fmt.Fprintln(tw, "METRIC\tLABELS\tVALUE")
	for _, s := range samples {
		fmt.Fprintf(tw, "%s\t%s\t%g\n", s.Name, formatLabels(s.Labels), s.Value)
	}
	flushTable(tw)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}
