package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/mattjoyce/runapp/internal/config"
	"github.com/mattjoyce/runapp/internal/doctor"
	"github.com/mattjoyce/runapp/internal/journal"
	"github.com/mattjoyce/runapp/internal/notify"
	"github.com/mattjoyce/runapp/internal/registry"
	"github.com/mattjoyce/runapp/internal/scheme"
)

// loadConfigForTool loads handler settings from configDir, or from the
// executable's directory when configDir is empty.
func loadConfigForTool(configDir string) (*config.Config, error) {
	if configDir == "" {
		dir, err := executableDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	return config.Load(configDir)
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func runDoctor(args []string) int {
	var configDir string
	var strict, jsonOut bool

	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.StringVar(&configDir, "config-dir", "", "Directory holding handler.yaml and RegisteredApps.xml")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()

	if jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result, notify.NewTheme(os.Stdout)))
	}

	if !result.Valid {
		return 1
	}
	if strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func runRegistryNoun(args []string) int {
	if len(args) < 1 {
		printRegistryNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printRegistryNounHelp(os.Stdout)
		return 0
	}

	switch args[0] {
	case "list":
		return runRegistryList(args[1:])
	case "lock":
		return runRegistryLock(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown registry action: %s\n", args[0])
		return 1
	}
}

func printRegistryNounHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: runapp registry <action> [flags]")
	fmt.Fprintln(w, "Actions: list, lock")
}

func runRegistryList(args []string) int {
	var configDir string
	var jsonOut bool

	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.StringVar(&configDir, "config-dir", "", "Directory holding handler.yaml and RegisteredApps.xml")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	reg, err := registry.Load(cfg.RegistryPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Registry load error: %v\n", err)
		return 1
	}

	type listedApp struct {
		registry.Entry
		Resolved string `json:"resolved"`
	}
	apps := make([]listedApp, 0, reg.Len())
	for _, e := range reg.Entries() {
		apps = append(apps, listedApp{Entry: e, Resolved: e.ResolvedTarget()})
	}

	if jsonOut {
		data, err := json.MarshalIndent(apps, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	if len(apps) == 0 {
		fmt.Printf("No applications registered in %s\n", reg.Path())
		return 0
	}

	theme := notify.NewTheme(os.Stdout)
	fmt.Println(theme.Header.Render(reg.Path()))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tTARGET\tARGS")
	for _, a := range apps {
		args := a.Args
		if args == "" {
			args = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.Key, a.Resolved, args)
	}
	_ = w.Flush()
	return 0
}

func runRegistryLock(args []string) int {
	var configDir string
	var dryRun bool

	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	fs.StringVar(&configDir, "config-dir", "", "Directory holding handler.yaml and RegisteredApps.xml")
	fs.BoolVar(&dryRun, "dry-run", false, "Compute hashes without writing .checksums")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	// Refuse to bless a registry the handler could not load.
	if _, err := registry.Load(cfg.RegistryPath()); err != nil {
		fmt.Fprintf(os.Stderr, "Registry load error: %v\n", err)
		return 1
	}

	report, err := config.GenerateChecksumsWithReport(cfg.BaseDir, config.LockedFiles, dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock registry in %s: %v\n", cfg.BaseDir, err)
		return 1
	}

	for _, file := range report.Files {
		if file.Exists {
			fmt.Printf("HASH %s: %s\n", file.Filename, file.Hash)
		} else {
			fmt.Printf("SKIP %s: not found\n", file.Filename)
		}
	}
	if dryRun {
		fmt.Printf("DRY-RUN %s: %s (not written)\n", config.ChecksumsFileName, report.ChecksumPath)
		fmt.Println("Dry run completed")
		return 0
	}
	fmt.Printf("WROTE %s: %s\n", config.ChecksumsFileName, report.ChecksumPath)
	return 0
}

func runHistory(args []string) int {
	var configDir, key string
	var limit int
	var jsonOut bool

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.StringVar(&configDir, "config-dir", "", "Directory holding handler.yaml and RegisteredApps.xml")
	fs.StringVar(&key, "key", "", "Only show launches for this routing key")
	fs.IntVar(&limit, "limit", 20, "Maximum number of rows")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if limit <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --limit must be positive")
		return 1
	}

	cfg, err := loadConfigForTool(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}
	if cfg.Journal.Path == "" {
		fmt.Fprintln(os.Stderr, "Launch journal is disabled.\nHint: set journal.path in handler.yaml or RUNAPP_JOURNAL_PATH")
		return 1
	}
	if _, err := os.Stat(cfg.Journal.Path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "No launch journal at %s yet\n", cfg.Journal.Path)
		return 1
	}

	ctx := context.Background()
	j, err := journal.Open(ctx, cfg.Journal.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open journal: %v\n", err)
		return 1
	}
	defer j.Close()

	records, err := j.Recent(ctx, key, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read journal: %v\n", err)
		return 1
	}

	if jsonOut {
		if records == nil {
			records = []journal.Record{}
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	if len(records) == 0 {
		fmt.Println("No launches recorded")
		return 0
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKEY\tOUTCOME\tPID\tTARGET")
	for _, rec := range records {
		pid := "-"
		if rec.PID > 0 {
			pid = fmt.Sprintf("%d", rec.PID)
		}
		k := rec.Key
		if k == "" {
			k = "-"
		}
		target := rec.Target
		if target == "" {
			target = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"), k, rec.Outcome, pid, target)
	}
	_ = w.Flush()
	return 0
}

func runRegister(args []string) int {
	var configDir, exe string

	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.StringVar(&configDir, "config-dir", "", "Directory holding handler.yaml")
	fs.StringVar(&exe, "exe", "", "Handler executable to register (defaults to this one)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	if exe == "" {
		exe, err = os.Executable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to locate executable: %v\n", err)
			return 1
		}
	}
	if abs, err := filepath.Abs(exe); err == nil {
		exe = abs
	}

	reg := scheme.Registration{Scheme: cfg.Service.Scheme, Title: cfg.Service.Title, Executable: exe}
	if err := scheme.Register(reg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register %s://: %v\n", reg.Scheme, err)
		return 1
	}
	fmt.Printf("Registered %s:// for the current user\n", reg.Scheme)
	fmt.Printf("  HKCU\\%s\n", reg.KeyPath())
	fmt.Printf("  command: %s\n", reg.Command())
	return 0
}

func runUnregister(args []string) int {
	var configDir string

	fs := flag.NewFlagSet("unregister", flag.ContinueOnError)
	fs.StringVar(&configDir, "config-dir", "", "Directory holding handler.yaml")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	if err := scheme.Unregister(cfg.Service.Scheme); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unregister %s://: %v\n", cfg.Service.Scheme, err)
		return 1
	}
	fmt.Printf("Unregistered %s://\n", cfg.Service.Scheme)
	return 0
}
