package pipeline

import (
	"strings"

	"github.com/josephlewis42/grsh/core/shell"
	"github.com/spf13/afero"
)

// AliasResolver looks up the replacement text for an alias.
type AliasResolver interface {
	Resolve(name string) (string, bool)
}

type noAliases struct{}

func (noAliases) Resolve(string) (string, bool) { return "", false }

// resolveAlias replaces the first token with its alias expansion. The
// expansion isn't itself checked for aliases.
func resolveAlias(aliases AliasResolver, tokens []shell.Token) []shell.Token {
	if len(tokens) == 0 || tokens[0].Literal {
		return tokens
	}

	replacement, ok := aliases.Resolve(tokens[0].Text)
	if !ok {
		return tokens
	}

	out := shell.Tokenize(replacement)
	return append(out, tokens[1:]...)
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// expandGlobs replaces each unquoted token containing a wildcard with the
// sorted paths it matches. Tokens that match nothing are kept as they are.
func expandGlobs(fsys afero.Fs, tokens []shell.Token) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Literal || !hasGlobMeta(tok.Text) {
			out = append(out, tok.Text)
			continue
		}

		matches, err := afero.Glob(fsys, tok.Text)
		if err != nil || len(matches) == 0 {
			out = append(out, tok.Text)
			continue
		}
		out = append(out, matches...)
	}
	return out
}
