package policy

import (
	"fmt"
	"strings"

	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

// alwaysAllowed commands never touch the chain.
var alwaysAllowed = map[string]struct{}{
	"":        {},
	"schema":  {},
	"version": {},
}

// CheckCommandAllowed enforces --enable-commands. An entry allows the command
// itself and every command below it, so "admin" allows "admin change".
func CheckCommandAllowed(allowlist []string, commandPath string) error {
	if len(allowlist) == 0 {
		return nil
	}
	normPath := normalize(commandPath)
	if _, ok := alwaysAllowed[normPath]; ok {
		return nil
	}
	for _, allowed := range allowlist {
		prefix := normalize(allowed)
		if prefix == "" {
			continue
		}
		if normPath == prefix || strings.HasPrefix(normPath, prefix+" ") {
			return nil
		}
	}
	return clierr.New(clierr.CodeBlocked, fmt.Sprintf("command %q blocked by --enable-commands policy", normPath))
}

func normalize(v string) string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(v)))
	return strings.Join(parts, " ")
}
