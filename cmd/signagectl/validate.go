package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vizora/signage/pkg/templating"
)

// errInvalidTemplate makes the command exit non-zero after the report is printed
var errInvalidTemplate = errors.New("template is not valid")

func newValidateCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a template for forbidden markup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read template: %w", err)
			}

			result := templating.Validate(string(source))

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return fmt.Errorf("failed to encode result: %w", err)
				}
			case "text":
				if result.Valid {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: invalid\n", args[0])
					for _, e := range result.Errors {
						fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", e)
					}
				}
			default:
				return fmt.Errorf("unknown format %q, expected text or json", format)
			}

			if !result.Valid {
				return errInvalidTemplate
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json)")
	return cmd
}
