package meta

import (
	"os"
	"strings"
	"unicode"
)

const envPrefix = "${env."

// expandEnvExpr replaces every ${env.KEY} with the value of the environment
// variable KEY, or "" if unset. Keys are letters, digits and '_'; anything
// else leaves the prefix untouched and scanning resumes right after it.
func expandEnvExpr(value string) string {
	var b strings.Builder
	for {
		idx := strings.Index(value, envPrefix)
		if idx < 0 {
			b.WriteString(value)
			return b.String()
		}
		b.WriteString(value[:idx])
		rest := value[idx+len(envPrefix):]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			b.WriteString(value[idx:])
			return b.String()
		}
		key := rest[:end]
		if !isEnvKey(key) {
			b.WriteString(envPrefix)
			value = rest
			continue
		}
		b.WriteString(os.Getenv(key))
		value = rest[end+1:]
	}
}

func isEnvKey(key string) bool {
	for _, r := range key {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}
