// Package vars holds shell variables and the expansions the shell applies to
// a line before it is executed.
package vars

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

const (
	// ExitStatus is the name of the variable holding the last pipeline's
	// outcome, either "0" or "1".
	ExitStatus = "?"

	EnvHome = "HOME"
)

// LookupFunc resolves a variable that isn't held by a MapEnv.
type LookupFunc func(key string) (string, bool)

// NewMapEnv creates a new environment backed by a map.
func NewMapEnv() *MapEnv {
	return &MapEnv{}
}

// NewMapEnvFromEnvList creates an environment from KEY=VALUE pairs.
func NewMapEnvFromEnvList(environ []string) *MapEnv {
	out := &MapEnv{}

	for _, e := range environ {
		split := strings.SplitN(e, "=", 2)
		key, value := split[0], ""
		if len(split) > 1 {
			value = split[1]
		}
		out.Setenv(key, value)
	}

	return out
}

// MapEnv implements an in-memory variable store. Variables that aren't set
// fall back to Fallback, which defaults to the process environment.
type MapEnv struct {
	rw  sync.RWMutex
	env map[string]string

	Fallback LookupFunc
}

// Setenv sets a shell variable.
func (m *MapEnv) Setenv(key, value string) {
	m.rw.Lock()
	defer m.rw.Unlock()

	if m.env == nil {
		m.env = make(map[string]string)
	}
	m.env[key] = value
}

// Unsetenv removes a shell variable.
func (m *MapEnv) Unsetenv(key string) {
	m.rw.Lock()
	defer m.rw.Unlock()
	if m.env != nil {
		delete(m.env, key)
	}
}

// LookupEnv gets a shell variable, falling back to the process environment.
func (m *MapEnv) LookupEnv(key string) (string, bool) {
	m.rw.RLock()
	val, ok := m.env[key]
	m.rw.RUnlock()
	if ok {
		return val, true
	}

	if m.Fallback != nil {
		return m.Fallback(key)
	}
	return os.LookupEnv(key)
}

// Getenv gets a shell variable or the empty string.
func (m *MapEnv) Getenv(key string) string {
	val, _ := m.LookupEnv(key)
	return val
}

// Environ returns the shell variables (without the fallback) as sorted
// KEY=VALUE pairs.
func (m *MapEnv) Environ() []string {
	m.rw.RLock()
	defer m.rw.RUnlock()

	var env []string
	for k, v := range m.env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)
	return env
}

// SetExitStatus records a pipeline's outcome in $?.
func (m *MapEnv) SetExitStatus(success bool) {
	if success {
		m.Setenv(ExitStatus, "0")
	} else {
		m.Setenv(ExitStatus, "1")
	}
}

// ExpandLine replaces $VAR, ${VAR} and $? references and expands a leading
// "~" on each space separated word to $HOME. Text inside single quotes is
// left untouched.
func (m *MapEnv) ExpandLine(line string) string {
	var (
		out      strings.Builder
		inSingle bool
		start    int
	)

	flush := func(end int) {
		out.WriteString(os.Expand(line[start:end], m.Getenv))
		start = end
	}

	for i := 0; i < len(line); i++ {
		if line[i] != '\'' {
			continue
		}
		if inSingle {
			out.WriteString(line[start : i+1])
			start = i + 1
		} else {
			flush(i)
		}
		inSingle = !inSingle
	}
	if inSingle {
		out.WriteString(line[start:])
	} else {
		flush(len(line))
	}

	return m.expandTilde(out.String())
}

func (m *MapEnv) expandTilde(line string) string {
	home := m.Getenv(EnvHome)
	if home == "" {
		return line
	}

	words := strings.Split(line, " ")
	for i, word := range words {
		switch {
		case word == "~":
			words[i] = home
		case strings.HasPrefix(word, "~/"):
			words[i] = home + word[1:]
		}
	}
	return strings.Join(words, " ")
}
