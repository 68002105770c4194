package shell

import (
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"sh33/internal/config"
)

// LineReader yields one line of input per call. io.EOF ends the session and
// readline.ErrInterrupt discards the current line.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

var promptColor = color.New(color.FgGreen, color.Bold)

// newLineReader builds the readline front end. readline only reads stdin
// while Readline is running, so children in the foreground see all of the
// terminal's input.
func newLineReader(cfg *config.Config, interactive bool) (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 prompt(cfg, interactive),
		DisableAutoSaveHistory: true,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
	})
	if err != nil {
		return nil, err
	}
	rl.HistoryDisable()
	return rl, nil
}

func prompt(cfg *config.Config, interactive bool) string {
	if !cfg.Prompt || !interactive {
		return ""
	}
	if cfg.Color {
		return promptColor.Sprint(cfg.PromptText)
	}
	return cfg.PromptText
}
