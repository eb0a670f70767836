package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/runapp/internal/config"
	"github.com/mattjoyce/runapp/internal/dispatch/mocks"
	"github.com/mattjoyce/runapp/internal/journal"
)

type fixture struct {
	dir    string
	cfg    *config.Config
	target string
	logs   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.BaseDir = dir

	target := filepath.Join(dir, "apps", "opticks.exe")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("binary"), 0o755))

	return &fixture{dir: dir, cfg: cfg, target: target, logs: &bytes.Buffer{}}
}

func (f *fixture) writeRegistry(t *testing.T, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.cfg.RegistryPath(), []byte(body), 0o644))
}

func (f *fixture) registerOpticks(t *testing.T) {
	t.Helper()
	f.writeRegistry(t, fmt.Sprintf(`<RunApp>
  <App key="opticks" target="%s" args="-nosplash"/>
</RunApp>`, f.target))
}

func (f *fixture) dispatcher(launcher Launcher, opts ...Option) *Dispatcher {
	logger := slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]Option{
		WithLogger(logger),
		WithIDGenerator(func() string { return "inv-test" }),
	}, opts...)
	return New(f.cfg, launcher, opts...)
}

func TestDispatchUsageErrors(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantReason string
		wantMsg    string
	}{
		{
			name:       "no arguments",
			args:       nil,
			wantReason: ReasonSyntax,
			wantMsg:    "Syntax Error:\nExpected: runapp://<key>/ <args>\n",
		},
		{
			name:       "wrong prefix",
			args:       []string{"http://opticks/", "C:/a.tif"},
			wantReason: ReasonInvalidPrefix,
			wantMsg:    "Invalid Prefix:\nExpected: runapp://<key>/ <args>\nReceived: http://opticks/",
		},
		{
			name:       "empty key",
			args:       []string{"runapp:///C:/a.tif"},
			wantReason: ReasonMissingKey,
			wantMsg:    "Missing Key:\nExpected: runapp://<key>/ <args>\nReceived: runapp:///C:/a.tif",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.registerOpticks(t)
			ctrl := gomock.NewController(t)
			launcher := mocks.NewMockLauncher(ctrl)

			res, err := f.dispatcher(launcher).Dispatch(context.Background(), tt.args)
			assert.Nil(t, res)

			var uerr *UsageError
			require.ErrorAs(t, err, &uerr)
			assert.Equal(t, tt.wantReason, uerr.Reason)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, 2, ExitCode(err))
		})
	}
}

func TestDispatchConfigNotFound(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)

	_, err := f.dispatcher(mocks.NewMockLauncher(ctrl)).Dispatch(context.Background(), []string{"runapp://opticks/"})

	var cerr *ConfigNotFoundError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, f.cfg.RegistryPath(), cerr.Path)
	assert.Equal(t, "Could not find configuration file.\n"+f.cfg.RegistryPath(), err.Error())
	assert.Equal(t, 3, ExitCode(err))
}

func TestDispatchConfigParseError(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, `<RunApp><App key="opticks"`)
	ctrl := gomock.NewController(t)

	_, err := f.dispatcher(mocks.NewMockLauncher(ctrl)).Dispatch(context.Background(), []string{"runapp://opticks/"})

	var perr *ConfigParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, f.cfg.RegistryPath(), perr.Path)
	assert.NotEmpty(t, perr.Msg)
	assert.Contains(t, err.Error(), "Error loading the XML config file.\n"+f.cfg.RegistryPath()+"\n")
	assert.Equal(t, 4, ExitCode(err))
}

func TestDispatchKeyNotFound(t *testing.T) {
	f := newFixture(t)
	f.registerOpticks(t)
	ctrl := gomock.NewController(t)

	_, err := f.dispatcher(mocks.NewMockLauncher(ctrl)).Dispatch(context.Background(), []string{"runapp://Opticks/"})

	var kerr *KeyNotFoundError
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, "Opticks", kerr.Key)
	assert.Equal(t, "Key not found in registered applications: Opticks", err.Error())
	assert.Equal(t, 5, ExitCode(err))
}

func TestDispatchTargetNotFoundAfterExpansion(t *testing.T) {
	f := newFixture(t)
	t.Setenv("RUNAPP_TEST_APPS", filepath.Join(f.dir, "elsewhere"))
	f.writeRegistry(t, `<RunApp><App key="viewer" target="${RUNAPP_TEST_APPS}/viewer.exe"/></RunApp>`)
	ctrl := gomock.NewController(t)

	_, err := f.dispatcher(mocks.NewMockLauncher(ctrl)).Dispatch(context.Background(), []string{"runapp://viewer/"})

	want := filepath.Join(f.dir, "elsewhere") + "/viewer.exe"
	var terr *TargetNotFoundError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, want, terr.Target)
	assert.Equal(t, "Could not find target application.\n"+want, err.Error())
	assert.Equal(t, 6, ExitCode(err))
}

func TestDispatchTargetIsDirectory(t *testing.T) {
	f := newFixture(t)
	f.writeRegistry(t, fmt.Sprintf(`<RunApp><App key="dir" target="%s"/></RunApp>`, f.dir))
	ctrl := gomock.NewController(t)

	_, err := f.dispatcher(mocks.NewMockLauncher(ctrl)).Dispatch(context.Background(), []string{"runapp://dir/"})

	var terr *TargetNotFoundError
	assert.ErrorAs(t, err, &terr)
}

func TestDispatchLaunchesWithArgumentVector(t *testing.T) {
	f := newFixture(t)
	f.registerOpticks(t)
	ctrl := gomock.NewController(t)
	launcher := mocks.NewMockLauncher(ctrl)
	launcher.EXPECT().Launch(f.target, []string{"C:/a.tif", "C:/b.tif"}).Return(4242, nil)

	res, err := f.dispatcher(launcher).Dispatch(context.Background(), []string{"runapp://opticks/", "C:/a.tif", "C:/b.tif"})
	require.NoError(t, err)
	assert.Equal(t, 0, ExitCode(err))

	assert.Equal(t, "inv-test", res.InvocationID)
	assert.Equal(t, "opticks", res.Key)
	assert.Equal(t, f.target, res.Target)
	assert.Equal(t, " C:/a.tif C:/b.tif ", res.CommandLine)
	assert.Equal(t, 4242, res.PID)
	assert.Contains(t, f.logs.String(), `"invocation_id":"inv-test"`)
	assert.Contains(t, f.logs.String(), "target launched")
}

func TestDispatchGluedPayloadAndSpacedArgs(t *testing.T) {
	f := newFixture(t)
	f.registerOpticks(t)
	ctrl := gomock.NewController(t)
	launcher := mocks.NewMockLauncher(ctrl)
	launcher.EXPECT().Launch(f.target, []string{"C:/a.tif", "C:/My Data/b.tif"}).Return(1, nil)

	_, err := f.dispatcher(launcher).Dispatch(context.Background(), []string{"runapp://opticks/C:/a.tif", "C:/My Data/b.tif"})
	require.NoError(t, err)
}

func TestDispatchEntryArgsTemplate(t *testing.T) {
	f := newFixture(t)
	f.registerOpticks(t)
	f.cfg.Launch.UseEntryArgs = true
	ctrl := gomock.NewController(t)
	launcher := mocks.NewMockLauncher(ctrl)
	launcher.EXPECT().Launch(f.target, []string{"-nosplash", "C:/a.tif"}).Return(1, nil)

	res, err := f.dispatcher(launcher).Dispatch(context.Background(), []string{"runapp://opticks/", "C:/a.tif"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-nosplash", "C:/a.tif"}, res.Args)
}

func TestDispatchLaunchFailure(t *testing.T) {
	f := newFixture(t)
	f.registerOpticks(t)
	ctrl := gomock.NewController(t)
	launcher := mocks.NewMockLauncher(ctrl)
	spawnErr := errors.New("exec format error")
	launcher.EXPECT().Launch(f.target, gomock.Any()).Return(0, spawnErr)

	_, err := f.dispatcher(launcher).Dispatch(context.Background(), []string{"runapp://opticks/"})

	var lerr *LaunchError
	require.ErrorAs(t, err, &lerr)
	assert.ErrorIs(t, err, spawnErr)
	assert.Equal(t, 7, ExitCode(err))
}

func TestDispatchIntegrity(t *testing.T) {
	f := newFixture(t)
	f.registerOpticks(t)
	_, err := config.GenerateChecksumsWithReport(f.dir, config.LockedFiles, false)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	launcher := mocks.NewMockLauncher(ctrl)
	launcher.EXPECT().Launch(f.target, gomock.Any()).Return(1, nil)

	d := f.dispatcher(launcher)
	_, err = d.Dispatch(context.Background(), []string{"runapp://opticks/"})
	require.NoError(t, err, "locked registry should dispatch")

	f.writeRegistry(t, `<RunApp><App key="opticks" target="/bin/sh"/></RunApp>`)
	_, err = d.Dispatch(context.Background(), []string{"runapp://opticks/"})

	var ierr *IntegrityError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, err.Error(), "hash mismatch")
	assert.Equal(t, 8, ExitCode(err))
}

func TestDispatchRecordsOutcomes(t *testing.T) {
	f := newFixture(t)
	f.registerOpticks(t)
	ctrl := gomock.NewController(t)
	launcher := mocks.NewMockLauncher(ctrl)
	recorder := mocks.NewMockRecorder(ctrl)

	var recs []journal.Record
	recorder.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec journal.Record) error {
		recs = append(recs, rec)
		return nil
	}).Times(2)
	launcher.EXPECT().Launch(f.target, []string{"C:/a.tif"}).Return(99, nil)

	d := f.dispatcher(launcher, WithRecorder(recorder))
	_, err := d.Dispatch(context.Background(), []string{"runapp://opticks/", "C:/a.tif"})
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), []string{"runapp://nope/"})
	require.Error(t, err)

	require.Len(t, recs, 2)
	assert.Equal(t, journal.OutcomeLaunched, recs[0].Outcome)
	assert.Equal(t, "opticks", recs[0].Key)
	assert.Equal(t, f.target, recs[0].Target)
	assert.Equal(t, []string{"C:/a.tif"}, recs[0].Args)
	assert.Equal(t, 99, recs[0].PID)

	assert.Equal(t, string(KindKeyNotFound), recs[1].Outcome)
	assert.Equal(t, "runapp://nope/", recs[1].URL)
	assert.Equal(t, "Key not found in registered applications: nope", recs[1].Message)
}

func TestDispatchJournalFailureDoesNotChangeOutcome(t *testing.T) {
	f := newFixture(t)
	f.registerOpticks(t)
	ctrl := gomock.NewController(t)
	launcher := mocks.NewMockLauncher(ctrl)
	recorder := mocks.NewMockRecorder(ctrl)
	launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(1, nil)
	recorder.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("database is locked"))

	_, err := f.dispatcher(launcher, WithRecorder(recorder)).Dispatch(context.Background(), []string{"runapp://opticks/"})
	assert.NoError(t, err)
	assert.Contains(t, f.logs.String(), "failed to journal invocation")
}

func TestDispatchIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.registerOpticks(t)
	ctrl := gomock.NewController(t)
	d := f.dispatcher(mocks.NewMockLauncher(ctrl))

	args := []string{"runapp://unknown/", "x"}
	_, first := d.Dispatch(context.Background(), args)
	for range 3 {
		_, again := d.Dispatch(context.Background(), args)
		assert.Equal(t, KindOf(first), KindOf(again))
		assert.Equal(t, first.Error(), again.Error())
	}
}

func TestCustomScheme(t *testing.T) {
	f := newFixture(t)
	f.registerOpticks(t)
	f.cfg.Service.Scheme = "opticks-run"
	ctrl := gomock.NewController(t)
	launcher := mocks.NewMockLauncher(ctrl)
	launcher.EXPECT().Launch(f.target, gomock.Any()).Return(1, nil)

	d := f.dispatcher(launcher)
	_, err := d.Dispatch(context.Background(), []string{"runapp://opticks/"})
	assert.Equal(t, KindUsage, KindOf(err))

	_, err = d.Dispatch(context.Background(), []string{"opticks-run://opticks/"})
	assert.NoError(t, err)
}
