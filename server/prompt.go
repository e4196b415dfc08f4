package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/peterh/liner"
)

// prompter reads one answer per call. io.EOF (or an aborted prompt) ends
// the session.
type prompter interface {
	Prompt(prompt string) (string, error)
	Close() error
}

type scanPrompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

func newScanPrompter(in io.Reader, out io.Writer) *scanPrompter {
	return &scanPrompter{sc: bufio.NewScanner(in), out: out}
}

func (p *scanPrompter) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.sc.Text(), nil
}

func (p *scanPrompter) Close() error { return nil }

// linerPrompter adds line editing and history on a real terminal.
type linerPrompter struct {
	st *liner.State
}

func newLinerPrompter() *linerPrompter {
	st := liner.NewLiner()
	st.SetCtrlCAborts(true)
	return &linerPrompter{st: st}
}

func (p *linerPrompter) Prompt(prompt string) (string, error) {
	line, err := p.st.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if line != "" {
		p.st.AppendHistory(line)
	}
	return line, nil
}

func (p *linerPrompter) Close() error { return p.st.Close() }
