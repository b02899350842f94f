// Command datafetch resolves a data definition through a proxy rule file
// and fetches it, printing the response payload as JSON. It exists mainly
// to exercise rule files against real endpoints.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	datalayer "github.com/paychex/datalayer"
)

type options struct {
	rules   string
	method  string
	headers []string
	timeout time.Duration
	retries int
	verbose bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "datafetch <base> [path]",
		Short:         "Resolve a data definition through proxy rules and fetch it",
		Args:          cobra.RangeArgs(1, 2),
		Version:       datalayer.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.rules, "rules", "r", "", "YAML proxy rule file")
	cmd.Flags().StringVarP(&opts.method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "request header (key: value), repeatable")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "retry attempts with exponential falloff")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log dispatch details")
	return cmd
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).With().Timestamp().Logger()

	layerOpts := []datalayer.Option{
		datalayer.WithAdapter(datalayer.DefaultAdapter, datalayer.HTTPAdapter(nil)),
		datalayer.WithLogger(logger),
	}
	if opts.rules != "" {
		rules, err := datalayer.LoadRules(opts.rules)
		if err != nil {
			return err
		}
		layerOpts = append(layerOpts, datalayer.WithRules(rules...))
	}

	dl, err := datalayer.New(layerOpts...)
	if err != nil {
		return err
	}

	def := &datalayer.Definition{
		Base:    args[0],
		Method:  opts.method,
		Timeout: opts.timeout,
	}
	if len(args) == 2 {
		def.Path = args[1]
	}
	if len(opts.headers) > 0 {
		def.Headers = datalayer.Headers{}
		for _, h := range opts.headers {
			key, value, ok := strings.Cut(h, ":")
			if !ok {
				return fmt.Errorf("invalid header %q, want key: value", h)
			}
			def.Headers.Add(strings.TrimSpace(key), strings.TrimSpace(value))
		}
	}

	req, err := dl.CreateRequest(def, nil, nil)
	if err != nil {
		return err
	}

	fetch := datalayer.WithLogging(dl.Fetch, logger)
	if opts.retries > 0 {
		fetch = datalayer.WithRetry(fetch,
			datalayer.Falloff(opts.retries, 200*time.Millisecond),
			datalayer.RetryLogger(logger))
	}

	resp, err := fetch(cmd.Context(), req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
