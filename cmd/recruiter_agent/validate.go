package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/recruiter-agent/internal/schemas"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <document.json>",
		Short: "Validate a saved result document against the document schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := schemas.ValidateDocumentFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0]) //nolint:errcheck
			return nil
		},
	}
}
