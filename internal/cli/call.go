package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/itchyny/gojq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/samvad-hq/retrofit-go/internal/app"
)

// ErrStatus reports a call that completed with a non-2xx status.
var ErrStatus = errors.New("remote returned an error status")

type callFlags struct {
	Params  []string
	JQ      string
	Output  string
	Metrics bool
}

func newCallCmd(root *rootFlags) *cobra.Command {
	var flags callFlags

	cmd := &cobra.Command{
		Use:   "call <endpoint>",
		Short: "Invoke a declared endpoint",
		Example: `  retrofit call GetUser -p id=42
  retrofit call UploadMedia -p media=@./avatar.png -p type=image
  retrofit call ListUsers --jq '.[].name'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.Output != "json" && flags.Output != "raw" {
				return fmt.Errorf("unsupported --output %q (want json or raw)", flags.Output)
			}
			if flags.Output == "raw" && flags.JQ != "" {
				return errors.New("--jq requires --output json")
			}
			params, err := parsePairs("--param", flags.Params)
			if err != nil {
				return err
			}
			query, err := parseFilter(flags.JQ)
			if err != nil {
				return err
			}

			rt, closeRuntime, err := openRuntime(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer closeRuntime()

			res, err := rt.Invoke(cmd.Context(), args[0], params)
			if flags.Metrics {
				defer writeMetrics(cmd.ErrOrStderr(), rt.Metrics())
			}
			if err != nil && (res == nil || res.Response == nil) {
				return err
			}
			if flags.Output == "raw" || err != nil {
				_, _ = io.WriteString(cmd.OutOrStdout(), res.Response.Body)
				if err != nil {
					return err
				}
			} else if werr := writeResult(cmd.OutOrStdout(), res, query); werr != nil {
				return werr
			}

			if !res.Response.IsSuccess() {
				return fmt.Errorf("%w: %d %s", ErrStatus, res.Response.StatusCode, res.Response.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&flags.Params, "param", "p", nil, "Endpoint argument as name=value; prefix a form value with @ to upload a file (repeatable)")
	cmd.Flags().StringVar(&flags.JQ, "jq", "", "jq expression applied to the decoded body")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "json", "Output format: json or raw")
	cmd.Flags().BoolVar(&flags.Metrics, "metrics", false, "Print call counters to stderr (requires METRICS_ENABLED)")
	return cmd
}

func writeResult(w io.Writer, res *app.Result, query *gojq.Query) error {
	data := res.Data
	if data == nil {
		data = res.Response.Body
	}
	filtered, err := applyFilter(data, query)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(filtered)
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) {
	if g == nil {
		return
	}
	families, err := g.Gather()
	if err != nil {
		fmt.Fprintf(w, "gather metrics: %v\n", err)
		return
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			c := m.GetCounter()
			if c == nil {
				continue
			}
			line := mf.GetName()
			for _, lp := range m.GetLabel() {
				line += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s %g", line, c.GetValue()))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
