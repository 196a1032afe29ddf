package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/localedrift/localedrift/internal/config"
	"github.com/localedrift/localedrift/internal/drift"
	"github.com/localedrift/localedrift/internal/gitcmd"
	"github.com/spf13/cobra"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Check flags
	allFiles        bool
	newOnly         bool
	driftedOnly     bool
	stampHash       string
	setDrifted      bool
	showDiff        bool
	quiet           bool
	verbose         bool
	failOnUntracked bool

	// Exit status of a completed check run, applied after Execute returns
	exitStatus int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
	os.Exit(exitStatus)
}

var rootCmd = &cobra.Command{
	Use:   "localedrift",
	Short: "Track localization drift against default-language pages",
	Long: `localedrift compares localized documentation pages with their
default-language counterparts and reports which translations have drifted.

Each page records the default-language commit it was last verified against in
its front matter; drift is detected by diffing that commit against the current
history of the counterpart page.`,
	SilenceUsage: true,
}

var checkCmd = &cobra.Command{
	Use:   "check [path...]",
	Short: "Check localized pages for drift",
	Long: `Check classifies each target page as in sync, drifted, new or orphaned by
combining its front-matter sync commit with git history.

Targets may be single files or directories; directories are walked recursively
for tracked pages, excluding the default-language subtree. Without targets the
whole content directory is checked.

With --stamp, the given default-branch commit (or "head" for the branch tip)
is recorded as the new sync baseline on the selected pages.`,
	RunE: runCheck,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the resolved default-branch commits",
	Long: `Info resolves the default branch tip and its merge-base with the current
branch, the two reference points check runs work against.`,
	RunE: runInfo,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("localedrift %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.localedrift.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Check command flags
	checkCmd.Flags().BoolVar(&allFiles, "all", false, "consider every tracked page, not just drifted ones")
	checkCmd.Flags().BoolVar(&newOnly, "new", false, "consider only pages without a sync baseline")
	checkCmd.Flags().BoolVar(&driftedOnly, "drifted", false, "consider only drifted pages (default)")
	checkCmd.Flags().StringVar(&stampHash, "stamp", "", "record this default-branch commit (or \"head\") as the sync baseline")
	checkCmd.Flags().BoolVar(&setDrifted, "set-drifted", false, "record drifted_from_default: true on drifted pages")
	checkCmd.Flags().BoolVar(&showDiff, "diff", false, "print the full diff for drifted pages")
	checkCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only report problems")
	checkCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "report every page, including in-sync ones")
	checkCmd.Flags().BoolVar(&failOnUntracked, "fail-on-untracked", false, "exit non-zero when pages were reported without being stamped")

	// Add commands
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	opts := buildOptions(args)
	if err := opts.Validate(); err != nil {
		return err
	}

	logger := setupLogger()
	site, err := loadSite(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine := drift.NewEngine(site, opts, gitcmd.NewShellRunner(""), logger)
	summary, err := engine.Run(ctx)
	if err != nil {
		logger.Error("check failed", "error", err)
		return err
	}

	exitStatus = summary.ExitCode
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	site, err := loadSite(setupLogger())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	git := gitcmd.NewShellRunner("")
	tip, err := git.Resolve(ctx, site.DefaultBranch)
	if err != nil {
		return err
	}
	base, err := git.MergeBase(ctx, site.DefaultBranch, "HEAD")
	if err != nil {
		return err
	}

	fmt.Printf("%s tip:    %s\n", site.DefaultBranch, tip)
	fmt.Printf("merge-base: %s\n", base)
	return nil
}

// buildOptions maps the parsed flags onto the immutable run options.
// Validation happens in Options.Validate, not here.
func buildOptions(args []string) config.Options {
	mode := config.ModeDrifted
	switch {
	case allFiles && newOnly, allFiles && driftedOnly, newOnly && driftedOnly:
		mode = "" // rejected by Validate as an unknown mode
	case allFiles:
		mode = config.ModeAll
	case newOnly:
		mode = config.ModeNew
	}

	return config.Options{
		Mode:            mode,
		StampHash:       stampHash,
		SetDrifted:      setDrifted,
		ShowDiff:        showDiff,
		Quiet:           quiet,
		Verbose:         verbose,
		FailOnUntracked: failOnUntracked,
		Targets:         args,
	}
}

// exitCodeFor maps fatal errors onto the documented exit codes: 2 for a
// missing target path, 1 for everything else.
func exitCodeFor(err error) int {
	var notFound *drift.TargetNotFoundError
	if errors.As(err, &notFound) {
		return 2
	}
	return 1
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Quiet and verbose win over --log-level
	if quiet {
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func loadSite(logger *slog.Logger) (*config.Site, error) {
	site, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"content_dir", site.ContentDir,
		"default_lang", site.DefaultLang,
		"default_branch", site.DefaultBranch,
		"extension", site.Extension)

	return site, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
