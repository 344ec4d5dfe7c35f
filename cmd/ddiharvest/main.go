package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/coolbeans/ddiharvest/pkg/cmm"
	"github.com/coolbeans/ddiharvest/pkg/config"
	"github.com/coolbeans/ddiharvest/pkg/extract"
	"github.com/coolbeans/ddiharvest/pkg/harvest"
	"github.com/coolbeans/ddiharvest/pkg/index"
	"github.com/coolbeans/ddiharvest/pkg/mapper"
	"github.com/coolbeans/ddiharvest/pkg/partition"
	"github.com/coolbeans/ddiharvest/pkg/server"
	"github.com/coolbeans/ddiharvest/pkg/source"
	"github.com/jinzhu/now"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Global flags
var (
	configPath string
	logLevel   string
	logJSON    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ddiharvest",
		Short: "DDI metadata harvester",
		Long: `ddiharvest harvests DDI study descriptions from data archives and
publishes them as per-language records of the common metadata model.

It supports:
  - DDI-Codebook 2.5, Nesstar codebooks and DDI-Lifecycle 3.2/3.3
  - OAI-PMH endpoints and local directories of XML files
  - Incremental and full harvests with deletion tracking
  - An HTTP API to trigger harvests and inspect their results`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel, logJSON)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")

	rootCmd.AddCommand(harvestCmd())
	rootCmd.AddCommand(mapCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(reposCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(level string, jsonFormat bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	if jsonFormat {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// environment is the loaded configuration shared by the commands.
type environment struct {
	settings config.Settings
	registry *config.RepositoryRegistry
	mappings config.AccessMappings
}

func loadEnvironment() (*environment, error) {
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}
	registry, err := config.NewRepositoryRegistryWithDirectory(settings.RepositoriesDir)
	if err != nil {
		return nil, err
	}
	mappings, err := config.LoadAccessMappings(settings.AccessMappingsFile)
	if err != nil {
		return nil, err
	}
	return &environment{settings: settings, registry: registry, mappings: mappings}, nil
}

func (e *environment) openRunner() (*harvest.Runner, *index.Store, error) {
	store, err := index.Open(e.settings.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}
	return harvest.NewRunner(e.settings, e.registry, e.mappings, store), store, nil
}

func harvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Harvest the configured repositories",
		Long: `Harvest records from the configured repositories into the index.

An incremental harvest lists records changed since --since and only deletes
records the source reports as deleted. A full harvest lists every record
and also deletes indexed records the source no longer has.

Example:
  ddiharvest harvest --config ddiharvest.yaml
  ddiharvest harvest --full --repo FSD --repo UKDS
  ddiharvest harvest --since 2024-05-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			full, _ := cmd.Flags().GetBool("full")
			repos, _ := cmd.Flags().GetStringSlice("repo")
			since, _ := cmd.Flags().GetString("since")
			asJSON, _ := cmd.Flags().GetBool("json")

			opts := harvest.RunOptions{Full: full, Repositories: repos}
			if since != "" {
				t, err := now.Parse(since)
				if err != nil {
					return fmt.Errorf("invalid --since date %q: %w", since, err)
				}
				opts.Since = t
			}

			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			runner, store, err := env.openRunner()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := runner.Run(ctx, opts)
			if report != nil {
				if asJSON {
					fmt.Println(harvest.FormatReportJSON(report))
				} else {
					fmt.Print(harvest.FormatReport(report))
				}
			}
			if err != nil {
				return err
			}

			failed := 0
			for _, repo := range report.Repositories {
				if repo.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d repositories failed", failed, len(report.Repositories))
			}
			return nil
		},
	}

	cmd.Flags().Bool("full", false, "List every record and delete records the source no longer has")
	cmd.Flags().StringSlice("repo", []string{}, "Repository codes to harvest (default all enabled)")
	cmd.Flags().String("since", "", "Harvest records changed since this date")
	cmd.Flags().Bool("json", false, "Print the report as JSON")

	return cmd
}

// mapOutput is printed by the map command.
type mapOutput struct {
	Namespace    string                         `json:"namespace"`
	Records      map[string]cmm.StudyOfLanguage `json:"records"`
	Diagnostics  []extract.Diagnostic           `json:"diagnostics,omitempty"`
	StrictErrors []string                       `json:"strict_errors,omitempty"`
}

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map FILE",
		Short: "Map a single DDI document and print its records",
		Long: `Map one DDI document (bare, OAI-PMH record or GetRecord response) and
print the finalized per-language records as JSON, together with the
diagnostics raised while extracting fields.

Example:
  ddiharvest map study.xml
  ddiharvest map study.xml --repo FSD --lang en --lang fi`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoCode, _ := cmd.Flags().GetString("repo")
			languages, _ := cmd.Flags().GetStringSlice("lang")
			noBackfill, _ := cmd.Flags().GetBool("no-backfill")

			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			if len(languages) == 0 {
				languages = env.settings.Languages
			}
			for _, language := range languages {
				if err := config.ValidateLanguage(language); err != nil {
					return err
				}
			}

			repoContext := mapper.RepositoryContext{Code: repoCode}
			if repoCode != "" {
				repo, ok := env.registry.Get(repoCode)
				if !ok {
					return fmt.Errorf("%w: %s", harvest.ErrUnknownRepository, repoCode)
				}
				repoContext = mapper.RepositoryContext{
					Code:            repo.Code,
					Name:            repo.Name,
					URL:             repo.URL,
					DefaultLanguage: repo.DefaultLanguage,
					AccessMapping:   env.mappings.For(repo.Code),
				}
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			doc, namespace, err := source.ParseDocument(data)
			if err != nil {
				return err
			}

			output := mapOutput{Namespace: namespace}
			var study *cmm.Study
			if doc.Header.Deleted {
				study = mapper.MapDeleted(doc.Header, repoContext)
			} else {
				m := mapper.New(mapper.Options{
					Backfill:        env.settings.Backfill && !noBackfill,
					DefaultLanguage: env.settings.DefaultLanguage,
					FailOnStrict:    env.settings.FailOnStrict,
				})
				result, err := m.MapDocument(doc, namespace, repoContext)
				if err != nil {
					return err
				}
				study = result.Study
				output.Diagnostics = result.Diagnostics
				for _, strictErr := range result.StrictErrors {
					output.StrictErrors = append(output.StrictErrors, strictErr.Error())
				}
			}

			partitionOptions := partition.Options{RepositoryCode: repoContext.Code, RepositoryName: repoContext.Name}
			if env.settings.LegacyGate {
				partitionOptions.Gate = partition.LegacyGate
			}
			output.Records = partition.PartitionByLanguage(study, languages, partitionOptions)

			data, err = json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode records: %w", err)
			}
			fmt.Println(string(data))

			if len(output.Records) == 0 {
				fmt.Fprintf(os.Stderr, "No language of %s has %s\n", strings.Join(languages, ", "), strings.Join(partition.RequiredFields, ", "))
			}
			return nil
		},
	}

	cmd.Flags().String("repo", "", "Repository code supplying URL, default language and access mapping")
	cmd.Flags().StringSlice("lang", []string{}, "Target languages (default from settings)")
	cmd.Flags().Bool("no-backfill", false, "Do not backfill unlabeled values into other languages")

	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the harvest API and harvest on an interval",
		Long: `Start the HTTP API. Harvests can be triggered with POST /harvests; when
a JWT secret is configured the request needs a bearer token from
"ddiharvest token". With --interval an incremental harvest is started on
every tick. Repository definitions are reloaded when their files change.

Example:
  ddiharvest serve --addr :8080 --interval 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				env.settings.Server.Addr, _ = cmd.Flags().GetString("addr")
			}
			if cmd.Flags().Changed("interval") {
				env.settings.Server.Interval, _ = cmd.Flags().GetDuration("interval")
			}

			runner, store, err := env.openRunner()
			if err != nil {
				return err
			}
			defer store.Close()

			env.registry.SetOnChange(func(event string, repo *config.Repository) {
				log.WithFields(log.Fields{"event": event, "repository": repo.Code}).Info("Repository definitions changed")
			})
			if err := env.registry.Watch(); err != nil {
				log.WithError(err).Warn("Repository definitions will not be reloaded")
			} else {
				defer env.registry.StopWatch()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var tokens *server.TokenService
			if env.settings.Server.JWTSecret != "" {
				ts := server.NewTokenService(env.settings.Server.JWTSecret, env.settings.Server.JWTIssuer)
				tokens = &ts
			} else {
				log.Warn("No JWT secret configured, POST /harvests is unauthenticated")
			}

			srv := server.New(ctx, runner, tokens)
			httpServer := &http.Server{
				Addr:              env.settings.Server.Addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			if interval := env.settings.Server.Interval; interval > 0 {
				go schedule(ctx, srv, interval)
			}

			errCh := make(chan error, 1)
			go func() {
				log.WithField("addr", httpServer.Addr).Info("Listening")
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
			}

			log.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down: %w", err)
			}
			srv.Wait()
			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().Duration("interval", 0, "Harvest interval (0 disables scheduled harvests)")

	return cmd
}

// schedule starts an incremental harvest on every tick. Each run lists
// records changed since the previous scheduled run started.
func schedule(ctx context.Context, srv *server.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var since time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			id, err := srv.Trigger(harvest.RunOptions{Since: since})
			if errors.Is(err, server.ErrRunInProgress) {
				log.Info("Skipping scheduled harvest, previous run still in progress")
				continue
			}
			if err != nil {
				log.WithError(err).Error("Failed to start scheduled harvest")
				continue
			}
			log.WithField("run", id).Info("Scheduled harvest started")
			since = tick.UTC()
		}
	}
}

func reposCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List the configured repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}

			repos := env.registry.List()
			if len(repos) == 0 {
				fmt.Printf("No repositories in %s\n", env.settings.RepositoriesDir)
				return nil
			}

			fmt.Printf("Repositories (%d):\n", len(repos))
			for _, repo := range repos {
				location := repo.URL
				if repo.SourceType() == config.SourceDirectory {
					location = repo.Path
				}
				status := ""
				if repo.Disabled {
					status = " (disabled)"
				}
				fmt.Printf("  %-8s %-6s %s%s\n", repo.Code, repo.SourceType(), location, status)
				if repo.Name != "" {
					fmt.Printf("           %s\n", repo.Name)
				}
			}

			mapped := make([]string, 0, len(env.mappings))
			for code := range env.mappings {
				mapped = append(mapped, code)
			}
			sort.Strings(mapped)
			fmt.Printf("\nAccess mappings: %s\n", strings.Join(mapped, ", "))
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for triggering harvests",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			settings, err := config.LoadSettings(configPath)
			if err != nil {
				return err
			}
			if settings.Server.JWTSecret == "" {
				return fmt.Errorf("no JWT secret configured (set %s)", config.EnvJWTSecret)
			}

			tokens := server.NewTokenService(settings.Server.JWTSecret, settings.Server.JWTIssuer)
			tokens.Duration = ttl
			token, exp, err := tokens.Sign(subject)
			if err != nil {
				return err
			}
			fmt.Println(token)
			fmt.Fprintf(os.Stderr, "Expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().String("subject", "operator", "Token subject")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")

	return cmd
}
