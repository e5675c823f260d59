package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cognicore/semrel/pkg/semrel"
	"github.com/cognicore/semrel/pkg/semrel/config"
)

const version = "semrel v0.3.0"

// app carries the state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "semrel",
		Short: "Rule-based semantic relation extraction",
		Long: `semrel rewrites per-sentence dependency facts into semantic relations
using pattern rules checked against a class hierarchy.

It can also generalize sets of sentences into their most specific common
form and induce new rules from annotated examples.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	// Global flags
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./semrel.yaml or $HOME/.semrel/semrel.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	pf.String("rules", "", "rule file")
	pf.String("taxonomy", "", "taxonomy file (.yaml or relation(child, parent) lines)")
	pf.String("dict", "", "multi-word dictionary (canonical|variant|category)")
	pf.String("store", "", "SQLite database path (in-memory when empty)")
	pf.String("oracle", "", "ontology backend: taxonomy or prolog")

	// Bind flags to viper
	_ = a.v.BindPFlag("paths.rules", pf.Lookup("rules"))
	_ = a.v.BindPFlag("paths.taxonomy", pf.Lookup("taxonomy"))
	_ = a.v.BindPFlag("paths.dictionary", pf.Lookup("dict"))
	_ = a.v.BindPFlag("store.path", pf.Lookup("store"))
	_ = a.v.BindPFlag("engine.oracle", pf.Lookup("oracle"))

	root.AddCommand(
		newVersionCmd(),
		newConfigCmd(a),
		newCheckCmd(a),
		newExtractCmd(a),
		newGeneralizeCmd(a),
		newInduceCmd(a),
		newRulesCmd(a),
		newReplayCmd(a),
		newTaxonomyCmd(a),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// init reads the config file and SEMREL_* environment variables and sets up
// logging.
func (a *app) init(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("semrel")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home + "/.semrel")
		}
	}

	a.v.SetEnvPrefix("SEMREL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()
	registerDefaults(a.v, config.DefaultConfig())

	if err := a.v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || a.cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	} else {
		a.logger.Debug("using config file", slog.String("path", a.v.ConfigFileUsed()))
	}
	return nil
}

// registerDefaults makes every key known to viper so environment variables
// can override it.
func registerDefaults(v *viper.Viper, d *config.Config) {
	v.SetDefault("engine.type_predicates", d.Engine.TypePredicates)
	v.SetDefault("engine.coverage_ignore", d.Engine.CoverageIgnore)
	v.SetDefault("engine.max_steps", d.Engine.MaxSteps)
	v.SetDefault("engine.max_passes", d.Engine.MaxPasses)
	v.SetDefault("engine.allow_degenerate", d.Engine.AllowDegenerate)
	v.SetDefault("engine.cache_size", d.Engine.CacheSize)
	v.SetDefault("engine.oracle", d.Engine.Oracle)
	v.SetDefault("generalize.ignore_predicates", d.Generalize.IgnorePredicates)
	v.SetDefault("generalize.exclude_ancestors", d.Generalize.ExcludeAncestors)
	v.SetDefault("generalize.max_steps", d.Generalize.MaxSteps)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.cache_ttl", d.Store.CacheTTL)
	v.SetDefault("paths.rules", d.Paths.Rules)
	v.SetDefault("paths.taxonomy", d.Paths.Taxonomy)
	v.SetDefault("paths.dictionary", d.Paths.Dictionary)
}

// config merges flags, environment, config file and defaults.
func (a *app) config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := a.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) engine(ctx context.Context) (*semrel.Engine, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	return semrel.New(ctx, semrel.Options{Config: cfg, Logger: a.logger})
}
