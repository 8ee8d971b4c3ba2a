package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/briangreenhill/openlaw/dispatch"
	"github.com/briangreenhill/openlaw/internal/config"
	"github.com/briangreenhill/openlaw/internal/jobs"
	"github.com/briangreenhill/openlaw/openlaw"
)

const version = "v0.1.0"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, os.Environ()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run executes the CLI. environ is the lowest-priority configuration layer.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, environ []string) error {
	cmd := newRootCmd(stdout, stderr, environ)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

type lookupOptions struct {
	query   string
	id      string
	output  string
	format  string
	display int
	page    int
	timeout time.Duration
}

type globalOptions struct {
	verbose bool
	envPath string
}

func newRootCmd(stdout, stderr io.Writer, environ []string) *cobra.Command {
	var (
		g    globalOptions
		opts lookupOptions
	)

	root := &cobra.Command{
		Use:   "openlaw <law|admrul> (--query <q> | --id <id>)",
		Short: "Search and fetch statutes and administrative rules from the law.go.kr open API",
		Example: `  openlaw law --query 도로교통법
  openlaw law --id 011349 --output out/law.json
  openlaw admrul --query 개인정보 --display 5 --format yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd.Context(), args[0], g, opts, stdout, stderr, environ)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().BoolVar(&g.verbose, "verbose", false, "log config sources and HTTP diagnostics to stderr")
	root.PersistentFlags().StringVar(&g.envPath, "env-path", "", "additional .env file (overrides the project .env)")

	f := root.Flags()
	f.StringVar(&opts.query, "query", "", "search keyword")
	f.StringVar(&opts.id, "id", "", "ID or MST of a single record")
	f.StringVar(&opts.output, "output", "", "write the result to this file instead of stdout")
	f.StringVar(&opts.format, "format", "json", "output format: json or yaml")
	f.IntVar(&opts.display, "display", 0, "results per page (search only)")
	f.IntVar(&opts.page, "page", 0, "page number (search only)")
	f.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (default OPEN_LAW_TIMEOUT or 15s)")

	root.AddCommand(newVersionCmd(stdout), newWarmCmd(&g, stdout, stderr, environ))
	return root
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "openlaw %s\n", version)
		},
	}
}

func newWarmCmd(g *globalOptions, stdout, stderr io.Writer, environ []string) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "warm <law|admrul> --id <id>",
		Short: "Queue a background fetch that fills the detail cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := jobs.NewWarmDetailTask(jobs.WarmDetailPayload{Kind: args[0], IDOrMst: id})
			if err != nil {
				return err
			}
			log := newCLILogger(stderr, g.verbose)
			res, err := config.Resolve(config.ResolveOptions{EnvPath: g.envPath, Environ: environ, Logger: log})
			if err != nil {
				return err
			}
			addr := res.Get("REDIS_ADDR")
			if addr == "" {
				addr = "localhost:6379"
			}

			client := asynq.NewClient(asynq.RedisClientOpt{Addr: addr})
			defer func() {
				if err := client.Close(); err != nil {
					log.Warn().Err(err).Msg("close asynq client")
				}
			}()
			info, err := client.EnqueueContext(cmd.Context(), task)
			if err != nil {
				return fmt.Errorf("enqueue warm task: %w", err)
			}
			fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "ID or MST to fetch")
	return cmd
}

func newCLILogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func runLookup(ctx context.Context, kindArg string, g globalOptions, opts lookupOptions, stdout, stderr io.Writer, environ []string) error {
	kind, err := openlaw.ParseKind(kindArg)
	if err != nil {
		return err
	}
	spec := openlaw.RequestSpec{
		Kind:  kind,
		Mode:  openlaw.ModeSearch,
		Query: strings.TrimSpace(opts.query),
		ID:    strings.TrimSpace(opts.id),
		Page:  openlaw.Page{Page: opts.page, Display: opts.display},
	}
	if spec.ID != "" {
		spec.Mode = openlaw.ModeDetail
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w (use exactly one of --query or --id)", err)
	}
	format, err := dispatch.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	log := newCLILogger(stderr, g.verbose)
	res, err := config.Resolve(config.ResolveOptions{EnvPath: g.envPath, Environ: environ, Logger: log})
	if err != nil {
		return err
	}
	if len(res.Loaded) == 0 {
		wd, _ := os.Getwd()
		log.Debug().Str("cwd", wd).Str("root", res.Root).Msg("no .env file found, using process environment only")
	} else {
		log.Debug().Strs("files", res.Loaded).Msg("loaded .env")
	}

	timeout := opts.timeout
	if timeout == 0 {
		if d, err := time.ParseDuration(res.Get("OPEN_LAW_TIMEOUT")); err == nil {
			timeout = d
		}
	}
	client, err := openlaw.New(res.Credential,
		openlaw.WithBaseURL(res.Get("OPEN_LAW_BASE_URL")),
		openlaw.WithTimeout(timeout),
		openlaw.WithLogger(log),
	)
	if err != nil {
		return err
	}

	raw, err := dispatch.Setup(client).Run(ctx, spec)
	if err != nil {
		return err
	}
	if err := dispatch.WriteOutput(stdout, opts.output, raw, format); err != nil {
		return err
	}
	if opts.output != "" {
		log.Debug().Str("path", opts.output).Msg("wrote result")
	}
	return nil
}
