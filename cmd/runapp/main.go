package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mattjoyce/runapp/internal/config"
	"github.com/mattjoyce/runapp/internal/dispatch"
	"github.com/mattjoyce/runapp/internal/journal"
	"github.com/mattjoyce/runapp/internal/log"
	"github.com/mattjoyce/runapp/internal/notify"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	executableDir = config.ExecutableDir
	newLauncher   = func() dispatch.Launcher { return dispatch.ExecLauncher{} }
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

// runCLI routes admin subcommands. Anything that is not exactly a subcommand
// name, including no arguments at all, is a URL invocation.
func runCLI(cliArgs []string) int {
	if len(cliArgs) > 0 {
		args := cliArgs[1:]
		switch cliArgs[0] {
		case "doctor":
			return runDoctor(args)
		case "registry":
			return runRegistryNoun(args)
		case "history":
			return runHistory(args)
		case "register":
			return runRegister(args)
		case "unregister":
			return runUnregister(args)
		case "version", "--version":
			return runVersion(args)
		case "help", "--help", "-h":
			printUsage(os.Stdout)
			return 0
		}
	}
	return runDispatch(cliArgs)
}

// runDispatch handles one URL activation: parse, look up, launch, and on
// failure tell the user and exit with the failure's code.
func runDispatch(args []string) int {
	dir, err := executableDir()
	if err != nil {
		reportStartupError(fmt.Sprintf("Could not locate the handler executable.\n%v", err))
		return 1
	}

	cfg, err := config.Load(dir)
	if err != nil {
		reportStartupError(fmt.Sprintf("Error loading handler settings.\n%v", err))
		return 1
	}

	closeLog := setupLogging(cfg)
	defer closeLog()

	ctx := context.Background()
	opts := []dispatch.Option{dispatch.WithLogger(log.WithComponent("dispatch"))}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(ctx, cfg.Journal.Path)
		if err != nil {
			log.Warn("launch journal unavailable", "path", cfg.Journal.Path, "error", err)
		} else {
			defer j.Close()
			opts = append(opts, dispatch.WithRecorder(j))
		}
	}

	d := dispatch.New(cfg, newLauncher(), opts...)
	if _, err := d.Dispatch(ctx, args); err != nil {
		n := notify.New(cfg.Service.Notify, os.Stderr)
		if nerr := n.Notify(cfg.Service.Title, err.Error()); nerr != nil {
			log.Error("failed to notify user", "error", nerr)
		}
		return dispatch.ExitCode(err)
	}
	return 0
}

// setupLogging points the global logger at the configured file, falling back
// to stderr when the file cannot be opened.
func setupLogging(cfg *config.Config) func() {
	var out io.Writer = os.Stderr
	closeFn := func() {}

	var openErr error
	if cfg.Log.File != "" {
		f, err := log.OpenFile(cfg.Log.File)
		if err != nil {
			openErr = err
		} else {
			out = f
			closeFn = func() { _ = f.Close() }
		}
	}

	log.Setup(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: out})
	if openErr != nil {
		log.Warn("log file unavailable, logging to stderr", "path", cfg.Log.File, "error", openErr)
	}
	return closeFn
}

// reportStartupError notifies the user before settings are available.
func reportStartupError(msg string) {
	defaults := config.Defaults()
	_ = notify.New(defaults.Service.Notify, os.Stderr).Notify(defaults.Service.Title, msg)
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: runapp version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("runapp %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalized, ok := normalizeBuildTimeUTC(resolvedBuildTime); ok {
		info.BuildTime = normalized
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}
	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `runapp - URL protocol handler for registered applications

Usage:
  runapp <scheme>://<key>/<args> [extra args...]
  runapp <command> [flags]

The operating system runs the first form when a link is activated. The key
selects an application from RegisteredApps.xml next to the executable.

Commands:
  doctor            Validate settings, registry and targets
  registry list     Show registered applications
  registry lock     Record the registry hash in .checksums
  history           Show recent launches from the journal
  register          Register the URL scheme for the current user (Windows)
  unregister        Remove the URL scheme registration (Windows)
  version           Show version information
  help              Show this help message

Admin commands accept --config-dir to use a directory other than the
executable's.
`)
}
