package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/retrofit-go/internal/app"
	"github.com/samvad-hq/retrofit-go/internal/config"
	"github.com/samvad-hq/retrofit-go/internal/logger"
)

type rootFlags struct {
	BaseURL       string
	EndpointsFile string
	Timeout       time.Duration
	Headers       []string
}

// Execute runs the command line against args, writing results to out and
// diagnostics to errOut.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "retrofit",
		Short:         "Call HTTP endpoints declared in an endpoints file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&flags.BaseURL, "base-url", "", "Base URL of the remote service (overrides BASE_URL)")
	root.PersistentFlags().StringVarP(&flags.EndpointsFile, "endpoints", "e", "", "Endpoints file (overrides ENDPOINTS_FILE)")
	root.PersistentFlags().DurationVar(&flags.Timeout, "timeout", 0, "Per-call timeout (overrides TIMEOUT_SECONDS)")
	root.PersistentFlags().StringArrayVarP(&flags.Headers, "header", "H", nil, "Extra default header as key=value (repeatable)")

	root.AddCommand(newCallCmd(&flags))
	root.AddCommand(newEndpointsCmd(&flags))
	root.AddCommand(newCacheCmd(&flags))

	return root.ExecuteContext(ctx)
}

// loadConfig reads config from the environment and applies flag overrides.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.BaseURL != "" {
		cfg.BaseURL = flags.BaseURL
	}
	if flags.EndpointsFile != "" {
		cfg.EndpointsFile = flags.EndpointsFile
	}
	if flags.Timeout < 0 {
		return nil, fmt.Errorf("invalid --timeout %s (must not be negative)", flags.Timeout)
	}
	if flags.Timeout > 0 {
		cfg.Timeout = flags.Timeout
	}
	kv, err := parsePairs("--header", flags.Headers)
	if err != nil {
		return nil, err
	}
	for k, v := range kv {
		cfg.DefaultHeaders[k] = v
	}
	return cfg, nil
}

// openRuntime loads config, starts the logger and builds the runtime. The
// returned cleanup closes both.
func openRuntime(ctx context.Context, flags *rootFlags) (*app.Runtime, func(), error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	if _, err := logger.Init(cfg); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	log := logger.Global()
	rt, err := app.NewRuntime(ctx, cfg, log)
	if err != nil {
		_ = logger.Close()
		return nil, nil, err
	}
	return rt, func() {
		if err := rt.Close(); err != nil {
			log.WarnObj("runtime close failed", "error", err.Error())
		}
		_ = logger.Close()
	}, nil
}

// parsePairs splits repeated key=value flag values.
func parsePairs(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid %s %q (want key=value)", flag, raw)
		}
		out[key] = value
	}
	return out, nil
}
