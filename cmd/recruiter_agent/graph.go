package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/recruiter-agent/internal/pipeline"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the stage graph and its thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			selector, err := pipeline.NewSelector(pipeline.DefaultGraph(), thresholds(cfg.Pipeline))
			if err != nil {
				return err
			}
			printGraph(cmd.OutOrStdout(), selector)
			return nil
		},
	}
}

//nolint:errcheck // writing to stdout
func printGraph(w io.Writer, s *pipeline.Selector) {
	for i, spec := range s.Graph() {
		stages := make([]string, 0, len(spec.Variants))
		for _, v := range spec.Variants {
			stages = append(stages, v.Stage)
		}
		fmt.Fprintf(w, "%d. %s: %s", i+1, spec.Name, strings.Join(stages, " -> "))
		if spec.BackEdge != nil {
			fmt.Fprintf(w, " (back-edge to %s variant %d)", spec.BackEdge.To, spec.BackEdge.Variant+1)
		}
		fmt.Fprintln(w)
	}

	th := s.Thresholds()
	fmt.Fprintf(w, "\njob floor: %d, alternate job floor: %d, company floor: %d, max back-edges: %d\n",
		th.JobFloor, th.AlternateJobFloor, th.CompanyFloor, th.MaxBackEdges)
}
