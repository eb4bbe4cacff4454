package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mgargadennec/elasticsearch-13a14/config"
	"github.com/mgargadennec/elasticsearch-13a14/examples"
	"github.com/mgargadennec/elasticsearch-13a14/logging"
)

// cli holds the state shared by every command.
type cli struct {
	configPath string
	verbose    bool

	setupLogging func(cfg config.LogConfig, verbose bool) (*zap.Logger, io.Closer, error)

	cfg    config.Config
	logger *zap.Logger
	closer io.Closer
}

// reportedError marks a failure already written to the log.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// reportError prints err unless the logger already reported it.
func reportError(w io.Writer, err error) {
	var reported *reportedError
	if err == nil || errors.As(err, &reported) {
		return
	}
	_, _ = fmt.Fprintln(w, "Error:", err)
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	c := &cli{setupLogging: logging.Setup}
	return c.rootCmd(in, out)
}

func (c *cli) rootCmd(in io.Reader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "esexamples",
		Short: "Embedded search tutorial examples",
		Long: `esexamples runs small tutorial programs against an embedded search node:
index creation, bulk loading, query-string search, custom mappings,
boolean queries, filters and aggregations.

Search examples read terms from stdin until "exit" or the end of input.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			logger, closer, err := c.setupLogging(cfg.Log, c.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.cfg, c.logger, c.closer = cfg, logger, closer
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.SetIn(in)
	root.SetOut(out)

	for _, ex := range examples.All() {
		root.AddCommand(c.exampleCmd(ex))
	}
	return root
}

func (c *cli) exampleCmd(ex examples.Example) *cobra.Command {
	var serveHTTP bool
	var addr string

	cmd := &cobra.Command{
		Use:   ex.Name,
		Short: ex.Short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if cerr := c.closeLogger(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			env := &examples.Env{
				Config: c.cfg,
				Logger: c.logger,
				In:     cmd.InOrStdin(),
				Out:    cmd.OutOrStdout(),
			}
			if serveHTTP {
				env.HTTPAddr = c.cfg.Serve.HTTPAddr
				if addr != "" {
					env.HTTPAddr = addr
				}
			}
			if err := ex.Execute(cmd.Context(), env); err != nil {
				c.logger.Error("Example failed", zap.String("example", ex.Name), zap.Error(err))
				return &reportedError{err: err}
			}
			return nil
		},
	}
	if ex.Name == "serve" {
		cmd.Flags().BoolVar(&serveHTTP, "http", false, "serve over HTTP instead of stdio")
		cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default serve.http_addr)")
	}
	return cmd
}

// closeLogger flushes the logger and closes its file. Safe to call twice.
func (c *cli) closeLogger() error {
	if c.closer == nil {
		return nil
	}
	closer := c.closer
	c.closer = nil
	return closer.Close()
}
