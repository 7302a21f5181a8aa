package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	httpapi "github.com/alem-hub/progression-engine/internal/interface/http"
)

// NewHashKeyCommand creates the hash-key command, which prints the value for
// HTTP_API_KEY_HASH.
func NewHashKeyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key <api-key>",
		Short: "Print the bcrypt hash to configure as HTTP_API_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := httpapi.HashAPIKey(args[0])
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"hash": hash})
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
