package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dbviz/dbviz/internal/config"
	"github.com/dbviz/dbviz/internal/logging"
	"github.com/dbviz/dbviz/internal/postgres"
	"github.com/dbviz/dbviz/internal/query"
	"github.com/dbviz/dbviz/internal/schema"
	"github.com/dbviz/dbviz/internal/server"
	"github.com/dbviz/dbviz/internal/version"
)

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"host":      "server.host",
	"port":      "server.port",
	"dsn":       "database.dsn",
	"driver":    "database.driver",
	"log-level": "log.level",
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "dbviz",
		Short:         "HTTP API for running SQL and describing a PostgreSQL schema",
		Long:          "dbviz exposes /execute_sql and /database_schema over HTTP in front of a PostgreSQL database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./dbviz.yaml or ~/.dbviz/dbviz.yaml)")
	rootCmd.PersistentFlags().String("dsn", "", "PostgreSQL connection string (overrides database.* settings)")
	rootCmd.PersistentFlags().String("driver", "", "database/sql driver: postgres or pgx")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	load := func(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
		return loadConfig(cmd, configPath, stderr)
	}

	rootCmd.AddCommand(
		newServeCmd(load),
		newSchemaCmd(load, stdout),
		newQueryCmd(load, stdout),
		newVersionCmd(stdout),
	)
	return rootCmd
}

type configLoader func(cmd *cobra.Command) (*config.Config, zerolog.Logger, error)

// loadConfig resolves configuration for cmd, binding whichever of its flags
// override config keys, and builds the logger.
func loadConfig(cmd *cobra.Command, path string, logOut io.Writer) (*config.Config, zerolog.Logger, error) {
	loader := config.NewLoader()
	for name, key := range flagKeys {
		flag := cmd.Flag(name)
		if flag == nil {
			continue
		}
		if err := loader.BindFlag(key, flag); err != nil {
			return nil, zerolog.Nop(), err
		}
	}

	cfg, err := loader.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	log, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if used := loader.ConfigFileUsed(); used != "" {
		log.Debug().Str("path", used).Msg("Loaded config file")
	}
	return cfg, log, nil
}

func newServeCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd, cfg, log)
		},
	}
	cmd.Flags().String("host", "", "listen host")
	cmd.Flags().Int("port", 0, "listen port")
	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config, log zerolog.Logger) error {
	ctx := cmd.Context()
	log.Info().Str("version", version.Get().Version).Str("driver", cfg.Database.Driver).Msg("Starting dbviz")

	conn, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database connection")
		}
	}()

	handler := server.NewHandler(server.Dependencies{
		Sessions:  conn,
		Executor:  query.NewExecutor(logging.Component(log, "query")),
		Inspector: schema.NewInspector(logging.Component(log, "schema")),
		Pinger:    conn,
		API:       server.NewOpenAPI(cfg.Service, cfg.BaseURL()),
		Logger:    logging.Component(log, "handler"),
	})
	router := server.NewRouter(cfg.Server, handler, logging.Component(log, "http"))

	srv := server.NewServer(cfg.Server, router, logging.Component(log, "server"))
	if err := srv.Start(); err != nil {
		return err
	}
	log.Info().Str("url", "http://"+srv.Addr()).Msg("dbviz ready")

	if err := srv.WaitForShutdown(ctx); err != nil {
		return err
	}
	log.Info().Msg("Shutdown complete")
	return nil
}

func newSchemaCmd(load configLoader, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the database schema as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}
			inspector := schema.NewInspector(logging.Component(log, "schema"))
			return withSession(cmd, cfg, func(session postgres.Session) error {
				info, err := inspector.Inspect(cmd.Context(), session)
				if err != nil {
					return fmt.Errorf("fetch schema: %s", postgres.DescribeError(err))
				}
				return printJSON(out, info)
			})
		},
	}
}

func newQueryCmd(load configLoader, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Execute one SQL statement and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}
			executor := query.NewExecutor(logging.Component(log, "query"))
			return withSession(cmd, cfg, func(session postgres.Session) error {
				result, err := executor.Execute(cmd.Context(), session, args[0])
				if err != nil {
					return fmt.Errorf("execute query: %s", postgres.DescribeError(err))
				}
				return printJSON(out, result)
			})
		},
	}
}

func newVersionCmd(out io.Writer) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if short {
				fmt.Fprintln(out, version.Get().String())
				return
			}
			fmt.Fprintln(out, version.Get().Full())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print a single line")
	return cmd
}

// withSession opens the pool, runs fn on one session and closes both.
func withSession(cmd *cobra.Command, cfg *config.Config, fn func(postgres.Session) error) error {
	conn, err := postgres.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	session, err := conn.Acquire(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	return fn(session)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
