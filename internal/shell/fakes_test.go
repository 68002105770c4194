package shell

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"sh33/internal/config"
)

// Wait statuses as Linux encodes them.
func exitedStatus(code int) unix.WaitStatus { return unix.WaitStatus(code << 8) }
func signaledStatus(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(sig) }
func stoppedStatus(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(int(sig)<<8 | 0x7f) }

const continuedStatus = unix.WaitStatus(0xffff)

type waitResult struct {
	pid int
	ws  unix.WaitStatus
	err error
}

type waitCall struct {
	pid     int
	options int
}

type killCall struct {
	pid int
	sig unix.Signal
}

// fakeProcesses hands out scripted wait results in order and records kills.
type fakeProcesses struct {
	results []waitResult
	waits   []waitCall
	kills   []killCall
	killErr error
}

func (p *fakeProcesses) Wait4(pid int, ws *unix.WaitStatus, options int) (int, error) {
	p.waits = append(p.waits, waitCall{pid: pid, options: options})
	if len(p.results) == 0 {
		if options&unix.WNOHANG != 0 {
			return 0, nil
		}
		return -1, unix.ECHILD
	}
	r := p.results[0]
	p.results = p.results[1:]
	*ws = r.ws
	return r.pid, r.err
}

func (p *fakeProcesses) Kill(pid int, sig unix.Signal) error {
	p.kills = append(p.kills, killCall{pid: pid, sig: sig})
	return p.killErr
}

type fakeTerminal struct {
	fd          int
	interactive bool
	shellGroup  int
	foreground  int
	handoffs    []int
}

func (t *fakeTerminal) Interactive() bool { return t.interactive }
func (t *fakeTerminal) Fd() int           { return t.fd }
func (t *fakeTerminal) ShellGroup() int   { return t.shellGroup }

func (t *fakeTerminal) SetForeground(pgid int) error {
	t.foreground = pgid
	t.handoffs = append(t.handoffs, pgid)
	return nil
}

// lineReader replays lines, then reports end of input.
type lineReader struct {
	lines  []string
	errs   map[int]error
	calls  int
	closed bool
}

func (r *lineReader) Readline() (string, error) {
	defer func() { r.calls++ }()
	if err, ok := r.errs[r.calls]; ok {
		return "", err
	}
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *lineReader) Close() error {
	r.closed = true
	return nil
}

type testShell struct {
	*Shell
	procs  *fakeProcesses
	term   *fakeTerminal
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestShell(t *testing.T, opts ...Option) *testShell {
	t.Helper()
	ts := &testShell{
		procs:  &fakeProcesses{},
		term:   &fakeTerminal{interactive: true, shellGroup: 42, foreground: 42},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	opts = append([]Option{
		WithReader(&lineReader{}),
		WithProcesses(ts.procs),
		WithTerminal(ts.term),
		WithOutput(ts.stdout, ts.stderr),
	}, opts...)

	s, err := New(config.Default(), opts...)
	require.NoError(t, err)
	ts.Shell = s
	return ts
}
