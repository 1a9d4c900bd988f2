package main

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/dagrad/internal/backend/naive"
	"github.com/born-ml/dagrad/internal/envconfig"
	"github.com/born-ml/dagrad/internal/graph"
	"github.com/born-ml/dagrad/internal/logutil"
	ops "github.com/born-ml/dagrad/internal/operators"
	"github.com/born-ml/dagrad/internal/tensor"
)

const version = "v0.1.0-dev"

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI builds the root command.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "dagrad",
		Short:         "Computation graphs with reverse-mode differentiation",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("version"); v {
				versionHandler(cmd, args)
				return
			}
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run:   versionHandler,
	}

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show the configuration read from the environment",
		Args:  cobra.NoArgs,
		RunE:  envHandler,
	}

	dotCmd := &cobra.Command{
		Use:   "dot",
		Short: "Print a sample graph in Graphviz format",
		Args:  cobra.NoArgs,
		RunE:  dotHandler,
	}

	fitCmd := newFitCmd()

	envVars := envconfig.AsMap()
	appendEnvDocs(fitCmd, []envconfig.EnvVar{
		envVars["DAGRAD_DEBUG"],
		envVars["DAGRAD_SEED"],
		envVars["DAGRAD_MEMORY_LIMIT"],
	})
	appendEnvDocs(dotCmd, []envconfig.EnvVar{envVars["DAGRAD_DEBUG"]})

	rootCmd.AddCommand(fitCmd, dotCmd, envCmd, versionCmd)
	return rootCmd
}

func versionHandler(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "dagrad version %s\n", version)
}

func envHandler(cmd *cobra.Command, _ []string) error {
	vars := envconfig.AsMap()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)

	var data [][]string
	for _, name := range names {
		v := vars[name]
		data = append(data, []string{v.Name, fmt.Sprintf("%v", v.Value), v.Description})
	}
	renderTable(cmd.OutOrStdout(), []string{"NAME", "VALUE", "DESCRIPTION"}, data)
	return nil
}

// dotHandler builds sum(x + 1, 0) with its gradient and dumps the graph.
func dotHandler(cmd *cobra.Command, _ []string) error {
	dev := naive.New(naive.DefaultConfig())
	defer dev.Close()
	g := graph.New()
	defer g.Clear()

	s := ops.Scope{Graph: g, Device: dev}
	x, err := s.Input(tensor.Dims(2, 2), []float32{1, 2, 3, 4})
	if err != nil {
		return err
	}
	ones, err := s.Ones(tensor.Dims(2, 2))
	if err != nil {
		return err
	}
	sum, err := ops.Add(x, ones)
	if err != nil {
		return err
	}
	y, err := ops.Sum(sum, 0)
	if err != nil {
		return err
	}
	loss, err := ops.SumAll(y)
	if err != nil {
		return err
	}
	if err := loss.Backward(); err != nil {
		return err
	}
	return g.Dump(cmd.OutOrStdout(), "dot")
}

func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()
}
