// Package shell turns a command line into pipeline stages.
//
// The grammar is deliberately small, loosely following
// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html
//
//  1. The line is split into AND lists on unquoted "&&".
//  2. Each AND list entry is split into pipeline stages on unquoted "|".
//     "|&" is read as "|".
//  3. Redirection operators and their targets are removed from each stage:
//     "<" may appear on any stage, ">" and ">>" only on the last one.
//  4. The remaining stage text is broken into tokens on unquoted spaces.
//
// Alias resolution and pathname expansion happen later, in the pipeline
// package, because they need the shell's alias table and filesystem.
package shell

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is wrapped by every error returned for malformed input.
var ErrSyntax = errors.New("syntax error")

// Token is a single word of a stage.
type Token struct {
	// Text holds the word with quote characters removed.
	Text string
	// Literal is set if any part of the word was quoted, pathname expansion
	// must not be applied to it.
	Literal bool
}

// Redirect is an output redirection target.
type Redirect struct {
	Path   string
	Append bool
}

// Stage is one command of a pipeline with its redirections extracted.
type Stage struct {
	// Index is the position of the stage in the pipeline, starting at 0.
	Index int
	// Last is set on the final stage of the pipeline.
	Last bool
	// Text is the command text with redirections removed.
	Text string
	// Input holds the path of the input redirection, if any.
	Input string
	// Output holds the output redirection, only ever set on the last stage.
	Output *Redirect
}

// Tokens splits the stage text into words.
func (s *Stage) Tokens() []Token {
	return Tokenize(s.Text)
}

func syntaxErrorf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, a...))
}

// quoteState tracks whether a scanner is inside single or double quotes.
type quoteState struct {
	single, double bool
}

// consume updates the state for c and reports whether c was a quote
// character that changed the state.
func (q *quoteState) consume(c byte) bool {
	switch {
	case c == '"' && !q.single:
		q.double = !q.double
		return true
	case c == '\'' && !q.double:
		q.single = !q.single
		return true
	}
	return false
}

func (q *quoteState) quoted() bool {
	return q.single || q.double
}

// splitUnquoted splits s on every occurrence of sep outside quotes.
func splitUnquoted(s, sep string) []string {
	var (
		out   []string
		state quoteState
		start int
	)
	for i := 0; i < len(s); i++ {
		if state.consume(s[i]) || state.quoted() {
			continue
		}
		if strings.HasPrefix(s[i:], sep) {
			out = append(out, s[start:i])
			i += len(sep) - 1
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// replaceUnquoted replaces every occurrence of old outside quotes with repl.
func replaceUnquoted(s, old, repl string) string {
	return strings.Join(splitUnquoted(s, old), repl)
}

// SplitAnd splits a line into the commands of an AND list. Empty lines yield
// no commands, an empty command between operators is a syntax error.
func SplitAnd(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	parts := splitUnquoted(line, "&&")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, syntaxErrorf("unexpected token `&&'")
		}
		parts[i] = part
	}
	return parts, nil
}

// Tokenize splits text into words on runs of unquoted spaces. Quote
// characters are removed; a double quote inside single quotes (and vice
// versa) is kept as text.
func Tokenize(text string) []Token {
	var (
		out     []Token
		current strings.Builder
		state   quoteState
		literal bool
		inWord  bool
	)

	flush := func() {
		if inWord {
			out = append(out, Token{Text: current.String(), Literal: literal})
		}
		current.Reset()
		literal = false
		inWord = false
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if state.consume(c) {
			literal = true
			inWord = true
			continue
		}
		if c == ' ' && !state.quoted() {
			flush()
			continue
		}
		current.WriteByte(c)
		inWord = true
	}
	flush()

	return out
}

// unquote removes quote characters from s without splitting it.
func unquote(s string) string {
	var (
		out   strings.Builder
		state quoteState
	)
	for i := 0; i < len(s); i++ {
		if state.consume(s[i]) {
			continue
		}
		out.WriteByte(s[i])
	}
	return out.String()
}

type redirOp int

const (
	opInput redirOp = iota
	opOutput
	opAppend
)

func (o redirOp) String() string {
	switch o {
	case opInput:
		return "<"
	case opAppend:
		return ">>"
	default:
		return ">"
	}
}

type redirection struct {
	op    redirOp
	start int
	end   int
}

func findRedirections(text string) []redirection {
	var (
		out   []redirection
		state quoteState
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if state.consume(c) || state.quoted() {
			continue
		}
		switch {
		case c == '<':
			out = append(out, redirection{op: opInput, start: i, end: i + 1})
		case c == '>' && i+1 < len(text) && text[i+1] == '>':
			out = append(out, redirection{op: opAppend, start: i, end: i + 2})
			i++
		case c == '>':
			out = append(out, redirection{op: opOutput, start: i, end: i + 1})
		}
	}
	return out
}

// parseStage extracts the redirections of a single stage. The target of an
// operator runs up to the next operator or the end of the stage.
func parseStage(text string, index int, last bool) (Stage, error) {
	stage := Stage{Index: index, Last: last}

	redirs := findRedirections(text)
	if len(redirs) == 0 {
		stage.Text = strings.TrimSpace(text)
		return stage, nil
	}

	stage.Text = strings.TrimSpace(text[:redirs[0].start])
	for i, r := range redirs {
		end := len(text)
		if i+1 < len(redirs) {
			end = redirs[i+1].start
		}

		target := unquote(strings.TrimSpace(text[r.end:end]))
		if target == "" {
			return Stage{}, syntaxErrorf("missing target for `%s'", r.op)
		}

		switch r.op {
		case opInput:
			if stage.Input != "" {
				return Stage{}, syntaxErrorf("more than one input redirection")
			}
			stage.Input = target
		default:
			if !last {
				return Stage{}, syntaxErrorf("output redirection is only allowed on the last command of a pipeline")
			}
			if stage.Output != nil {
				return Stage{}, syntaxErrorf("more than one output redirection")
			}
			stage.Output = &Redirect{Path: target, Append: r.op == opAppend}
		}
	}

	return stage, nil
}

// Parse splits a single command (one entry of an AND list) into pipeline
// stages. An empty command yields no stages.
func Parse(command string) ([]Stage, error) {
	if strings.TrimSpace(command) == "" {
		return nil, nil
	}

	// "|&" is accepted as a plain pipe, stderr is not merged.
	texts := splitUnquoted(replaceUnquoted(command, "|&", "|"), "|")
	stages := make([]Stage, 0, len(texts))
	for i, text := range texts {
		stage, err := parseStage(text, i, i == len(texts)-1)
		if err != nil {
			return nil, err
		}
		if stage.Text == "" {
			if len(texts) > 1 {
				return nil, syntaxErrorf("unexpected token `|'")
			}
			return nil, syntaxErrorf("missing command")
		}
		stages = append(stages, stage)
	}
	return stages, nil
}
