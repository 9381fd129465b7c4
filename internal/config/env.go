package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches environment variable references:
//   - ${VAR_NAME}
//   - ${VAR_NAME:-default}
//   - $VAR_NAME
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([a-zA-Z_][a-zA-Z0-9_]*)`)

// ExpandEnv expands environment variable references in s. ${VAR:-default}
// yields default when VAR is unset or empty; other unset variables expand
// to the empty string. "$$" is kept as a literal dollar sign so shell
// commands can still refer to their own variables.
func ExpandEnv(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	parts := strings.Split(s, "$$")
	for i, part := range parts {
		parts[i] = envVarPattern.ReplaceAllStringFunc(part, expandMatch)
	}
	return strings.Join(parts, "$")
}

func expandMatch(match string) string {
	if strings.HasPrefix(match, "${") && strings.HasSuffix(match, "}") {
		inner := match[2 : len(match)-1]
		if name, def, ok := strings.Cut(inner, ":-"); ok {
			if val := os.Getenv(name); val != "" {
				return val
			}
			return def
		}
		return os.Getenv(inner)
	}
	return os.Getenv(match[1:])
}
