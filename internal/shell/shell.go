package shell

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"sh33/internal/config"
	"sh33/internal/jobs"
	"sh33/internal/parser"
)

// errExit is returned by the exit builtin to end Run cleanly.
var errExit = errors.New("exit")

// FatalError is an OS failure in the shell's own control flow. Run stops
// and returns it; the caller prints it and exits with status 1.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

type Shell struct {
	config     *config.Config
	jobs       *jobs.Table
	reader     LineReader
	term       Terminal
	procs      Processes
	stdout     io.Writer
	stderr     io.Writer
	signalChan chan os.Signal

	// nextJobID is the id the next inserted job gets. It only grows.
	nextJobID int
	// nextOrphanID numbers reports about children that died before they
	// were ever put in the table.
	nextOrphanID int
	// lastCommand names children the reaper meets for the first time.
	lastCommand string
}

// Option customises a Shell built by New.
type Option func(*Shell)

// WithReader replaces the readline front end.
func WithReader(r LineReader) Option {
	return func(s *Shell) { s.reader = r }
}

// WithTerminal replaces the controlling terminal.
func WithTerminal(t Terminal) Option {
	return func(s *Shell) { s.term = t }
}

// WithProcesses replaces the wait/kill calls used for job control.
func WithProcesses(p Processes) Option {
	return func(s *Shell) { s.procs = p }
}

// WithOutput sets where builtins print and where job reports and errors go.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *Shell) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

func New(cfg *config.Config, opts ...Option) (*Shell, error) {
	s := &Shell{
		config:       cfg,
		jobs:         jobs.New(),
		procs:        sysProcesses{},
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		signalChan:   make(chan os.Signal, 1),
		nextJobID:    1,
		nextOrphanID: 1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.term == nil {
		s.term = newTTY(int(os.Stdin.Fd()))
	}
	if s.reader == nil {
		rl, err := newLineReader(cfg, s.term.Interactive())
		if err != nil {
			return nil, fmt.Errorf("error initializing readline: %w", err)
		}
		s.reader = rl
	}
	return s, nil
}

// Run is the read-eval loop. It returns nil on exit or end of input and a
// *FatalError when the shell itself cannot go on.
func (s *Shell) Run() error {
	s.setupSignalHandling()
	defer s.stopSignalHandling()
	defer s.reader.Close()
	defer s.jobs.Close()

	for {
		s.reapChildren()

		line, err := s.reader.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return &FatalError{Op: "read failed", Err: err}
		}

		if err := s.Execute(line); err != nil {
			var fatal *FatalError
			switch {
			case errors.Is(err, errExit):
				return nil
			case errors.As(err, &fatal):
				return err
			default:
				fmt.Fprintln(s.stderr, err)
			}
		}
	}
}

// Execute runs one input line.
func (s *Shell) Execute(line string) error {
	cmd, err := parser.Parse(line)
	if err != nil {
		return err
	}
	if len(cmd.Args) == 0 {
		return nil
	}

	if ok, err := s.executeBuiltin(cmd.Args); ok {
		return err
	}
	return s.runExternal(cmd)
}

// Jobs returns a snapshot of the job table.
func (s *Shell) Jobs() []jobs.Job {
	return s.jobs.List()
}

func (s *Shell) runExternal(cmd *parser.Command) error {
	pid, err := s.launch(cmd)
	if err != nil {
		return err
	}
	s.lastCommand = cmd.Program

	if cmd.Background {
		s.addBackgroundJob(pid, cmd.Program)
		return nil
	}
	return s.waitForeground(pid, cmd.Program)
}
