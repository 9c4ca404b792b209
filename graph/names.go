package graph

import (
	"strings"
	"unicode"
)

// ScopeSeparator joins a name prefix and a node name.
const ScopeSeparator = "/"

// OpName returns the node name of an element name, dropping a trailing
// output index such as the ":0" in "dense/out:0".
func OpName(name string) string {
	name = strings.TrimSpace(name)
	i := strings.LastIndexByte(name, ':')
	if i < 0 || i == len(name)-1 {
		return name
	}
	for _, r := range name[i+1:] {
		if !unicode.IsDigit(r) {
			return name
		}
	}
	return name[:i]
}

// Scoped prefixes name with scope. An empty scope leaves name unchanged.
func Scoped(scope, name string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return name
	}
	return scope + ScopeSeparator + name
}

func validNodeName(name string) bool {
	if name == "" || strings.ContainsRune(name, ':') {
		return false
	}
	if strings.HasPrefix(name, ScopeSeparator) || strings.HasSuffix(name, ScopeSeparator) {
		return false
	}
	return !strings.Contains(name, ScopeSeparator+ScopeSeparator)
}
