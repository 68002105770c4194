// Package parser turns one line of shell input into a Command.
package parser

import (
	"errors"
	"strings"

	"github.com/kballard/go-shellquote"
)

const (
	backgroundMarker = "&"
	redirectIn       = "<"
	redirectOut      = ">"
	redirectAppend   = ">>"
)

// SyntaxError is a malformed redirection or quote. The line it came from is
// not run.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Msg
}

var (
	ErrNoInputFile         = &SyntaxError{Msg: "no input file"}
	ErrInputIsRedirection  = &SyntaxError{Msg: "input file is a redirection symbol"}
	ErrMultipleInputFiles  = &SyntaxError{Msg: "multiple input files"}
	ErrNoOutputFile        = &SyntaxError{Msg: "no output file"}
	ErrOutputIsRedirection = &SyntaxError{Msg: "output file is a redirection symbol"}
	ErrMultipleOutputFiles = &SyntaxError{Msg: "multiple output files"}
)

// Command is a single parsed line. It is never modified after Parse returns.
type Command struct {
	// Args is the argument vector handed to the program, redirections removed.
	Args []string
	// Program is the command word exactly as typed.
	Program string
	// Path is the first token that started with "/".
	Path string

	Background bool
	InputFile  string
	OutputFile string
	Append     bool
}

// Name returns the argv[0] the program will see.
func (c *Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

// Redirected reports whether either standard stream is bound to a file.
func (c *Command) Redirected() bool {
	return c.InputFile != "" || c.OutputFile != ""
}

// Parse splits line into a Command. Redirection mistakes do not stop the
// walk; every one found is returned, joined, alongside the best-effort
// Command.
//
// Operators are only recognised unquoted: `echo '>' x` prints "> x".
func Parse(line string) (*Command, error) {
	if _, err := shellquote.Split(line); err != nil {
		// shellquote only fails on unterminated quotes and escapes.
		return nil, &SyntaxError{Msg: strings.ToLower(err.Error())}
	}
	tokens := tokenize(line)

	cmd := &Command{}
	for _, tok := range tokens {
		if strings.HasPrefix(tok.text, "/") {
			cmd.Path = tok.text
			break
		}
	}

	// The marker is stripped before redirections are looked at so that
	// "cmd > out &" never treats "&" as a file name.
	if n := len(tokens); n > 0 && tokens[n-1].is(backgroundMarker) {
		cmd.Background = true
		tokens = tokens[:n-1]
	}

	var errs []error
	for i := 0; i < len(tokens); i++ {
		switch tok := tokens[i]; {
		case tok.is(redirectIn):
			i++
			target, err := redirectTarget(tokens, i, ErrNoInputFile, ErrInputIsRedirection)
			if err != nil {
				errs = append(errs, err)
			}
			if cmd.InputFile != "" {
				errs = append(errs, ErrMultipleInputFiles)
			} else {
				cmd.InputFile = target
			}
		case tok.is(redirectOut), tok.is(redirectAppend):
			i++
			target, err := redirectTarget(tokens, i, ErrNoOutputFile, ErrOutputIsRedirection)
			if err != nil {
				errs = append(errs, err)
			}
			if cmd.OutputFile != "" {
				errs = append(errs, ErrMultipleOutputFiles)
			} else {
				cmd.OutputFile = target
				cmd.Append = tok.is(redirectAppend)
			}
		default:
			arg := tok.text
			if len(cmd.Args) == 0 {
				cmd.Program = arg
				if arg == cmd.Path {
					arg = basename(arg)
				}
			}
			cmd.Args = append(cmd.Args, arg)
		}
	}

	return cmd, errors.Join(errs...)
}

// token is one word of input with its quoting removed. operator is set
// only for a bare, unquoted "&", "<", ">" or ">>".
type token struct {
	text     string
	operator bool
}

func (t token) is(op string) bool {
	return t.operator && t.text == op
}

// tokenize splits line on unquoted blanks the way shellquote does, keeping
// enough of each raw word to tell "<" from '<'. The line must already have
// passed shellquote.Split.
func tokenize(line string) []token {
	var (
		tokens  []token
		raw     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	flush := func() {
		if !inWord {
			return
		}
		word := raw.String()
		raw.Reset()
		inWord = false
		if isOperator(word) {
			tokens = append(tokens, token{text: word, operator: true})
			return
		}
		parts, _ := shellquote.Split(word)
		if len(parts) == 0 {
			// A lone line continuation.
			return
		}
		tokens = append(tokens, token{text: strings.Join(parts, "")})
	}

	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if r == quote {
				quote = 0
			} else if r == '\\' && quote == '"' {
				escaped = true
			}
		case r == '\\':
			escaped = true
		case r == '\'' || r == '"':
			quote = r
		case r == ' ' || r == '\t' || r == '\n':
			flush()
			continue
		}
		raw.WriteRune(r)
		inWord = true
	}
	flush()
	return tokens
}

func redirectTarget(tokens []token, i int, missing, symbol error) (string, error) {
	if i >= len(tokens) {
		return "", missing
	}
	if tokens[i].operator && isRedirection(tokens[i].text) {
		return "", symbol
	}
	return tokens[i].text, nil
}

func isOperator(word string) bool {
	return word == backgroundMarker || isRedirection(word)
}

func isRedirection(tok string) bool {
	return tok == redirectIn || tok == redirectOut || tok == redirectAppend
}

// basename keeps everything after the last slash, so "/bin/" yields "".
func basename(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}
