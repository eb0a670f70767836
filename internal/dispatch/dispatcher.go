package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/runapp/internal/config"
	"github.com/mattjoyce/runapp/internal/invocation"
	"github.com/mattjoyce/runapp/internal/journal"
	"github.com/mattjoyce/runapp/internal/log"
	"github.com/mattjoyce/runapp/internal/registry"
)

// recordTimeout bounds how long a journal write may delay handler exit.
const recordTimeout = 3 * time.Second

// Recorder persists invocation outcomes.
type Recorder interface {
	Record(ctx context.Context, rec journal.Record) error
}

// Result describes a successful launch.
type Result struct {
	InvocationID string
	Key          string
	Target       string   // resolved path
	Args         []string // argument vector passed to the target
	CommandLine  string   // legacy flat form, for display
	PID          int
}

// Dispatcher runs the handler pipeline for one invocation.
type Dispatcher struct {
	cfg      *config.Config
	launcher Launcher
	recorder Recorder
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder journals every outcome to r.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithIDGenerator replaces the invocation id source.
func WithIDGenerator(f func() string) Option {
	return func(d *Dispatcher) { d.newID = f }
}

// New creates a Dispatcher.
func New(cfg *config.Config, launcher Launcher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:      cfg,
		launcher: launcher,
		logger:   log.WithComponent("dispatch"),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch validates args, resolves the target and starts it. The returned
// error, if any, implements Error.
func (d *Dispatcher) Dispatch(ctx context.Context, args []string) (*Result, error) {
	id := d.newID()
	logger := d.logger.With("invocation_id", id)
	logger.Info("invocation received", "argc", len(args))

	rec := journal.Record{ID: id, CreatedAt: d.now()}
	if len(args) > 0 {
		rec.URL = args[0]
	}

	res, err := d.run(logger, args, &rec)
	if err != nil {
		kind := KindOf(err)
		rec.Outcome = string(kind)
		rec.Message = err.Error()
		logger.Error("dispatch failed", "kind", kind, "error", err)
	} else {
		res.InvocationID = id
		rec.Outcome = journal.OutcomeLaunched
		rec.PID = res.PID
		logger.Info("target launched", "key", res.Key, "target", res.Target, "args", res.Args, "pid", res.PID)
	}

	d.record(ctx, logger, rec)
	return res, err
}

func (d *Dispatcher) run(logger *slog.Logger, args []string, rec *journal.Record) (*Result, error) {
	scheme := d.cfg.Service.Scheme

	inv, err := invocation.Parse(scheme, args)
	if err != nil {
		return nil, usageError(scheme, args, err)
	}
	rec.Key = inv.Key
	logger.Debug("parsed invocation", "key", inv.Key, "payload", inv.Payload, "extra_args", len(inv.Extra))

	reg, err := d.loadRegistry(logger)
	if err != nil {
		return nil, err
	}

	entry, ok := reg.Lookup(inv.Key)
	if !ok {
		return nil, &KeyNotFoundError{Key: inv.Key}
	}

	target := entry.ResolvedTarget()
	rec.Target = target
	if info, err := os.Stat(target); err != nil || info.IsDir() {
		return nil, &TargetNotFoundError{Key: inv.Key, Target: target}
	}

	argv := inv.Args()
	if d.cfg.Launch.UseEntryArgs {
		argv = append(entry.TemplateArgs(), argv...)
	}
	rec.Args = argv

	logger.Debug("launching target", "target", target, "args", argv)
	pid, err := d.launcher.Launch(target, argv)
	if err != nil {
		return nil, &LaunchError{Target: target, Err: err}
	}

	return &Result{
		Key:         inv.Key,
		Target:      target,
		Args:        argv,
		CommandLine: inv.CommandLine(),
		PID:         pid,
	}, nil
}

func (d *Dispatcher) loadRegistry(logger *slog.Logger) (*registry.Registry, error) {
	path := d.cfg.RegistryPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, &ConfigNotFoundError{Path: path}
	}

	verified, err := config.VerifyRegistry(path)
	if err != nil {
		return nil, &IntegrityError{Path: path, Err: err}
	}
	if verified {
		logger.Debug("registry checksum verified", "path", path)
	}

	reg, err := registry.Load(path)
	if err != nil {
		var perr *registry.ParseError
		switch {
		case errors.Is(err, registry.ErrNotFound):
			return nil, &ConfigNotFoundError{Path: path}
		case errors.As(err, &perr):
			return nil, &ConfigParseError{Path: path, Msg: perr.Msg}
		default:
			return nil, &ConfigParseError{Path: path, Msg: err.Error()}
		}
	}
	logger.Debug("registry loaded", "path", path, "entries", reg.Len())
	return reg, nil
}

func (d *Dispatcher) record(ctx context.Context, logger *slog.Logger, rec journal.Record) {
	if d.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if err := d.recorder.Record(rctx, rec); err != nil {
		logger.Warn("failed to journal invocation", "error", err)
	}
}

func usageError(scheme string, args []string, err error) error {
	expected := invocation.Syntax(scheme)
	switch {
	case errors.Is(err, invocation.ErrNoArguments):
		return &UsageError{Reason: ReasonSyntax, Expected: expected}
	case errors.Is(err, invocation.ErrEmptyKey):
		return &UsageError{Reason: ReasonMissingKey, Expected: expected, Received: args[0]}
	default:
		return &UsageError{Reason: ReasonInvalidPrefix, Expected: expected, Received: args[0]}
	}
}
