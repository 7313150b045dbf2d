package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Drop every cached response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, closeRuntime, err := openRuntime(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer closeRuntime()

			n, err := rt.PurgeCache()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached responses\n", n)
			return nil
		},
	})
	return cmd
}
