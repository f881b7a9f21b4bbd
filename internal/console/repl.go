package console

import (
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

type lineReader interface {
	Readline() (string, error)
}

func newReadline(prompt string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
}

// Run reads command lines from the terminal until quit, EOF or Ctrl-C.
func Run(s *Session, prompt string, stdout io.Writer) error {
	rl, err := newReadline(prompt)
	if err != nil {
		return err
	}
	defer rl.Close()

	return loop(s, rl, stdout)
}

func loop(s *Session, r lineReader, stdout io.Writer) error {
	for {
		line, err := r.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return err
		}

		out, err := s.Eval(line)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(stdout, err)
			continue
		}

		if out != "" {
			fmt.Fprintln(stdout, out)
		}
	}
}
