package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petal-labs/devtools"
	"github.com/petal-labs/devtools/tool"
)

// NewToolsCmd creates the "tools" command group.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the built-in tool set",
	}

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsProbeCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools",
		Args:  cobra.NoArgs,
		RunE:  runToolsList,
	}
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	kit := devtools.New(devtools.Options{})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, info := range kit.Registry().List() {
		fmt.Fprintf(w, "%s\t%s\n", info.Name, info.Description)
	}
	return w.Flush()
}

func newToolsProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Probe host capabilities",
		Args:  cobra.NoArgs,
		RunE:  runToolsProbe,
	}
}

func runToolsProbe(cmd *cobra.Command, _ []string) error {
	caps := tool.Probe(cmd.Context())

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CAPABILITY\tAVAILABLE")
	for _, name := range tool.CapabilityNames() {
		fmt.Fprintf(w, "%s\t%t\n", name, caps[name])
	}
	return w.Flush()
}
