package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"recordkeep/internal/app"
	"recordkeep/internal/config"
	"recordkeep/internal/domain"
	"recordkeep/internal/fetch"
	"recordkeep/internal/logging"
	"recordkeep/internal/repo"
	"recordkeep/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rk",
		Short: "Recordkeep CLI",
		Long: `Recordkeep keeps records in an in-memory store and classifies work statuses.
- Records: name, contact, ordered roles and attributes; identities are minted on save.
- Stores: "memory" (a map) or "sqlite" (an in-memory SQLite database); nothing is written to disk.
- Statuses: pending, running (0-100%), completed, failed; 'rk status classify' names their category.`,
		SilenceUsage: true,
	}
	cobra.OnInitialize(initConfig)
	addPersistentFlags(root)
	root.AddCommand(serveCmd())
	root.AddCommand(recordCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())
	root.AddCommand(tokenCmd())
	return root
}

func initConfig() {
	viper.SetEnvPrefix("RECORDKEEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().StringP("config", "c", config.Path("."), "config file")
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.PersistentFlags().String("backend", "", "store backend (memory or sqlite); overrides config")
	root.PersistentFlags().String("log-level", "", "log level; overrides config")
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("backend", root.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				cfg := rt.Config
				if addr == "" {
					addr = cfg.Server.Addr
				}
				if basePath == "" {
					basePath = cfg.Server.BasePath
				}
				authCfg := server.AuthConfig{JWTSecret: cfg.Auth.JWTSecret}
				if s := viper.GetString("jwt-secret"); s != "" {
					authCfg.JWTSecret = s
				}
				if authCfg.JWTSecret == "" {
					rt.Logger.Warn("RECORDKEEP_JWT_SECRET not set; API is unauthenticated")
				}
				handler, err := server.New(server.Config{Records: rt.Records, BasePath: basePath, Auth: authCfg, Logger: rt.Logger})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				rt.Logger.Info("serving", zap.String("addr", addr), zap.String("base_path", basePath))
				fmt.Fprintf(cmd.OutOrStdout(), "Serving Recordkeep API on http://%s%s (OpenAPI at %s/openapi.json, metrics at /metrics)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

func recordCmd() *cobra.Command {
	rec := &cobra.Command{Use: "record", Short: "Work with records"}
	rec.AddCommand(recordImportCmd())
	rec.AddCommand(recordDemoCmd())
	return rec
}

func recordImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <locator>",
		Short: "Fetch a YAML/JSON list of records from a URL or file and save them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locator := args[0]
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				payload, err := fetch.ForLocator(locator).Fetch(ctx, locator)
				if err != nil {
					return err
				}
				seed, err := config.ParseSeed([]byte(payload))
				if err != nil {
					return err
				}
				if _, err := rt.Seed(ctx, seed); err != nil {
					return err
				}
				entries, err := rt.Records.Entries(ctx)
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), entries)
			})
		},
	}
	return cmd
}

func recordDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Save a few sample records and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				alice := domain.NewRecord(1001, "Alice", "alice@example.com").
					AddRole("admin").
					AddRole("user").
					WithMetadata("team", "core")
				if _, err := rt.Records.Save(ctx, *alice); err != nil {
					return err
				}
				more := []domain.Record{
					*domain.NewRecord(1002, "Bob", "bob@example.com").AddRole("user"),
					*domain.NewRecord(1003, "Carol", "carol@example.com").AddRole("ops").WithMetadata("oncall", "yes"),
				}
				if _, err := repo.SaveAll[domain.Record](ctx, rt.Records, more, 2); err != nil {
					return err
				}
				entries, err := rt.Records.Entries(ctx)
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), entries)
			})
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	st := &cobra.Command{Use: "status", Short: "Work status helpers"}
	st.AddCommand(statusClassifyCmd())
	return st
}

func statusClassifyCmd() *cobra.Command {
	var (
		progress uint
		code     int32
		message  string
	)
	cmd := &cobra.Command{
		Use:   "classify <pending|running|completed|failed>",
		Short: "Render a work status and print its category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := domain.ParseStatus(args[0], progress, code, message)
			if err != nil {
				return err
			}
			out := server.ClassifyResponse{
				State:    domain.Envelope(s).State,
				Category: string(domain.Classify(s)),
				Display:  s.String(),
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), out)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"State", "Display", "Category"})
			tw.AppendRow(table.Row{out.State, out.Display, out.Category})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().UintVar(&progress, "progress", 0, "progress percent for running")
	cmd.Flags().Int32Var(&code, "code", 0, "error code for failed")
	cmd.Flags().StringVar(&message, "message", "", "message for completed or failed")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage the config file"}
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("config")
			if _, err := os.Stat(path); err == nil && !viper.GetBool("force") {
				return fmt.Errorf("config %s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(viper.GetString("config"))
			if err != nil {
				return err
			}
			if b := viper.GetString("backend"); b != "" {
				c.Store.Backend = b
				if err := c.Validate(); err != nil {
					return err
				}
			}
			rt, err := app.New(cmd.Context(), c, nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: backend=%s addr=%s seed=%d", c.Store.Backend, c.Server.Addr, len(c.Seed))
			current, latest, ok, err := rt.Schema(cmd.Context())
			if err != nil {
				return err
			}
			if ok {
				if current != latest {
					return fmt.Errorf("schema version %d, want %d", current, latest)
				}
				fmt.Fprintf(cmd.OutOrStdout(), " schema=%d", current)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	})
	cfg.PersistentFlags().Bool("force", false, "overwrite an existing file")
	_ = viper.BindPFlag("force", cfg.PersistentFlags().Lookup("force"))
	return cfg
}

func tokenCmd() *cobra.Command {
	var subject string
	var roles []string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with RECORDKEEP_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt-secret")
			if secret == "" {
				cfg, err := config.LoadOptional(viper.GetString("config"))
				if err != nil {
					return err
				}
				secret = cfg.Auth.JWTSecret
			}
			token, err := server.IssueToken(secret, subject, roles...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "local-user", "token subject")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role claim (repeatable)")
	return cmd
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if b := viper.GetString("backend"); b != "" {
		cfg.Store.Backend = b
	}
	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, cfg.Validate()
}

func withRuntime(ctx context.Context, fn func(context.Context, *app.Runtime) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()
	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func printRecords(w io.Writer, entries []repo.Entry[domain.Record]) error {
	if viper.GetBool("json") {
		return printJSON(w, server.NewRecordResponses(entries))
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Record ID", "Name", "Contact", "Roles", "Attributes"})
	for _, e := range entries {
		r := e.Value
		tw.AppendRow(table.Row{e.ID, r.ID, r.Name, r.Contact, strings.Join(r.Roles, ","), formatAttributes(r.Attributes)})
	}
	tw.Render()
	return nil
}

func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, " ")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
