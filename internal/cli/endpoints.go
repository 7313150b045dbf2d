package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newEndpointsCmd(root *rootFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "endpoints",
		Aliases: []string{"ls"},
		Short:   "List declared endpoints",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, closeRuntime, err := openRuntime(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer closeRuntime()

			reg := rt.Endpoints()
			if reg == nil {
				return errors.New("no endpoints file configured")
			}
			eps := reg.All()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(eps)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMETHOD\tPATH\tPARAMS")
			for _, ep := range eps {
				names := make([]string, 0, len(ep.Params))
				for _, p := range ep.Params {
					n := p.Kind + ":" + p.Name
					if p.Required {
						n += "*"
					}
					names = append(names, n)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ep.Name, ep.Method, ep.Path, strings.Join(names, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print endpoints as JSON")
	return cmd
}
