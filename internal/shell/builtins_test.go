package shell

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"sh33/internal/jobs"
)

func TestFg_unknownJob(t *testing.T) {
	s := newTestShell(t)
	s.addBackgroundJob(100, "sleep")

	err := s.Execute("fg %7")

	assert.ErrorIs(t, err, jobs.ErrNotFound)
	assert.Equal(t, "job not found", err.Error())
	assert.Empty(t, s.procs.kills, "no signal is sent")
	assert.Empty(t, s.term.handoffs, "terminal untouched")
}

func TestFg_resumesAndWaits(t *testing.T) {
	s := newTestShell(t)
	s.addBackgroundJob(100, "sleep")
	require.NoError(t, s.jobs.SetStatusByPID(100, jobs.Stopped))
	s.procs.results = []waitResult{{pid: 100, ws: exitedStatus(0)}}

	require.NoError(t, s.Execute("fg %1"))

	assert.Equal(t, []killCall{{pid: -100, sig: unix.SIGCONT}}, s.procs.kills)
	assert.Equal(t, []waitCall{{pid: 100, options: unix.WUNTRACED}}, s.procs.waits)
	assert.Equal(t, []int{100, 42}, s.term.handoffs)
	assert.Empty(t, s.Jobs())
}

func TestFg_stoppedAgain(t *testing.T) {
	s := newTestShell(t)
	s.addBackgroundJob(100, "sleep")
	s.stderr.Reset()
	s.procs.results = []waitResult{{pid: 100, ws: stoppedStatus(unix.SIGTSTP)}}

	require.NoError(t, s.Execute("fg 1"))

	assert.Equal(t, []jobs.Job{{ID: 1, PID: 100, Status: jobs.Stopped, Command: "sleep"}}, s.Jobs())
	assert.Equal(t, "[1] (100) suspended by signal 20\n", s.stderr.String())
	assert.Equal(t, 42, s.term.foreground)
}

func TestFg_killedWhileInForeground(t *testing.T) {
	s := newTestShell(t)
	s.addBackgroundJob(100, "sleep")
	s.stderr.Reset()
	s.procs.results = []waitResult{{pid: 100, ws: signaledStatus(unix.SIGINT)}}

	require.NoError(t, s.Execute("fg %1"))

	assert.Empty(t, s.Jobs())
	assert.Equal(t, "(100) terminated by signal 2\n", s.stderr.String())
	assert.Equal(t, 42, s.term.foreground)
}

func TestFg_waitFailure(t *testing.T) {
	s := newTestShell(t)
	s.addBackgroundJob(100, "sleep")
	s.procs.results = []waitResult{{pid: -1, err: unix.EINVAL}}

	err := s.Execute("fg %1")

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 42, s.term.foreground, "terminal reclaimed")
}

func TestFg_alreadyReaped(t *testing.T) {
	s := newTestShell(t)
	s.addBackgroundJob(100, "sleep")
	s.procs.results = []waitResult{{pid: -1, err: unix.ECHILD}}

	err := s.Execute("fg %1")

	require.Error(t, err)
	var fatal *FatalError
	assert.False(t, errors.As(err, &fatal))
	assert.Empty(t, s.Jobs())
	assert.Equal(t, 42, s.term.foreground)
}

func TestBg(t *testing.T) {
	s := newTestShell(t)
	s.addBackgroundJob(100, "sleep")
	s.procs.results = []waitResult{{pid: 100, ws: stoppedStatus(unix.SIGTSTP)}}
	s.reapChildren()
	require.Equal(t, jobs.Stopped, s.Jobs()[0].Status)

	require.NoError(t, s.Execute("bg %1"))

	assert.Equal(t, jobs.Running, s.Jobs()[0].Status)
	assert.Equal(t, []killCall{{pid: -100, sig: unix.SIGCONT}}, s.procs.kills)
	assert.Empty(t, s.term.handoffs, "bg leaves the terminal alone")
}

func TestBg_unknownJob(t *testing.T) {
	s := newTestShell(t)

	err := s.Execute("bg %3")

	assert.ErrorIs(t, err, jobs.ErrNotFound)
	assert.Empty(t, s.procs.kills)
}

func TestBg_killFails(t *testing.T) {
	s := newTestShell(t)
	s.addBackgroundJob(100, "sleep")
	require.NoError(t, s.jobs.SetStatusByPID(100, jobs.Stopped))
	s.procs.killErr = unix.ESRCH

	err := s.Execute("bg %1")

	assert.ErrorIs(t, err, unix.ESRCH)
	assert.Equal(t, jobs.Stopped, s.Jobs()[0].Status)
}

func TestParseJobID(t *testing.T) {
	id, err := parseJobID("fg", []string{"%2"})
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	id, err = parseJobID("fg", []string{"3"})
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	_, err = parseJobID("fg", nil)
	assert.ErrorIs(t, err, errSyntax)

	_, err = parseJobID("bg", []string{"%1", "%2"})
	assert.ErrorIs(t, err, errSyntax)

	_, err = parseJobID("bg", []string{"%x"})
	assert.EqualError(t, err, "bg: %x: invalid job id")

	_, err = parseJobID("bg", []string{"%0"})
	assert.Error(t, err)
}

func TestJobsBuiltin(t *testing.T) {
	s := newTestShell(t)
	s.addBackgroundJob(100, "sleep")
	s.addBackgroundJob(200, "yes")
	require.NoError(t, s.jobs.SetStatusByPID(200, jobs.Stopped))

	require.NoError(t, s.Execute("jobs"))

	assert.Equal(t, "[1] (100) Running sleep\n[2] (200) Stopped yes\n", s.stdout.String())
}

func TestExitBuiltin(t *testing.T) {
	s := newTestShell(t)
	assert.ErrorIs(t, s.Execute("exit"), errExit)
}

func TestCd(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(wd) })

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	s := newTestShell(t)
	require.NoError(t, s.Execute("cd "+dir))
	got, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	assert.ErrorIs(t, s.Execute("cd"), errSyntax)
	assert.ErrorIs(t, s.Execute("cd a b"), errSyntax)
	assert.ErrorIs(t, s.Execute("cd "+filepath.Join(dir, "missing")), os.ErrNotExist)
}

func TestLnAndRm(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(target, []byte("data"), 0600))

	s := newTestShell(t)
	require.NoError(t, s.Execute("ln "+target+" "+link))
	data, err := os.ReadFile(link)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	assert.ErrorIs(t, s.Execute("ln "+target+" "+link), unix.EEXIST)
	assert.ErrorIs(t, s.Execute("ln "+target), errMissingOperand)

	require.NoError(t, s.Execute("rm "+link))
	assert.NoFileExists(t, link)
	assert.ErrorIs(t, s.Execute("rm "+link), unix.ENOENT)
	assert.ErrorIs(t, s.Execute("rm"), errMissingOperand)
}
