package main

import (
	"fmt"
	"io"

	"suffixguard/internal/config"
	"suffixguard/internal/engine"
	"suffixguard/internal/hostname"
	"suffixguard/internal/logging"
	"suffixguard/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	cfgFile  string
	logLevel string
	dbPath   string

	cfg *config.Config
	db  *repository.RuleDB
	eng *engine.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "suffixguard",
		Short: "Public suffix lookups backed by a local ruleset",
		Long: `suffixguard keeps a local copy of the public suffix list and answers
questions about hostnames: their public suffix, their registrable domain,
and whether two hosts belong to the same site.

Example:
  suffixguard update
  suffixguard domain www.bbc.co.uk
  suffixguard samesite mail.google.com www.google.com`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: search configs/, ./, $XDG_CONFIG_HOME/suffixguard, /etc/suffixguard)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "ruleset database (default from config)")

	rootCmd.AddCommand(
		newSuffixCmd(a),
		newDomainCmd(a),
		newBaseCmd(a),
		newSameSiteCmd(a),
		newExplainCmd(a),
		newCrossCheckCmd(a),
		newUpdateCmd(a),
		newScanCmd(a),
		newPcapCmd(a),
		newWatchCmd(a),
		newInitCmd(a),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	// Log early config loading at the requested level too.
	logging.SetupConsole(a.logLevel, cmd.ErrOrStderr())

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.App.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	logging.SetupConsole(level, cmd.ErrOrStderr())

	if a.dbPath != "" {
		a.cfg.App.DBPath = a.dbPath
	}

	log.Debug().Str("command", cmd.Name()).Str("db", a.cfg.App.DBPath).Msg("command started")
	return nil
}

// openDB opens the ruleset database named by the config.
func (a *app) openDB() (*repository.RuleDB, error) {
	if a.db != nil {
		return a.db, nil
	}

	db := &repository.RuleDB{IncludePrivate: a.cfg.Lists.IncludePrivate}
	if err := db.InitDB(a.cfg.App.DBPath); err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

// engine opens the database and loads its rules, failing when the database
// has never been populated.
func (a *app) engine() (*engine.Engine, error) {
	if a.eng != nil {
		return a.eng, nil
	}

	db, err := a.openDB()
	if err != nil {
		return nil, err
	}

	n, err := db.Count()
	if err != nil {
		return nil, fmt.Errorf("counting rules: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("no rules stored in %s, run `suffixguard update` first", a.cfg.App.DBPath)
	}

	eng := engine.New(db, a.cfg.Lookup.CacheSize)
	if err := eng.Init(); err != nil {
		return nil, err
	}
	log.Debug().Int("rules", eng.Stats().Rules).Msg("engine ready")

	a.eng = eng
	return eng, nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	a.eng = nil
	return err
}

// normalizeArg turns a command line argument into a lookup host. Input that
// cannot be normalized is looked up verbatim.
func normalizeArg(arg string) string {
	host, err := hostname.Normalize(arg)
	if err != nil {
		log.Debug().Err(err).Str("arg", arg).Msg("using argument as given")
		return arg
	}
	return host
}

// formatResult prints "-" for a missing answer and "(empty)" for an empty
// one.
func formatResult(value string, ok bool) string {
	switch {
	case !ok:
		return "-"
	case value == "":
		return "(empty)"
	default:
		return value
	}
}

func printResults(w io.Writer, hosts []string, lookup func(string) (string, bool)) {
	for _, arg := range hosts {
		value, ok := lookup(normalizeArg(arg))
		if len(hosts) == 1 {
			fmt.Fprintln(w, formatResult(value, ok))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", arg, formatResult(value, ok))
	}
}
