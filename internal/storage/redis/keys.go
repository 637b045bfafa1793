package redis

import "strings"

// Key prefix shared with the original key-value endpoint layout
const keyPrefix = "game"

// gameKey returns the Redis key for a game snapshot
func gameKey(key string) string {
	return keyPrefix + ":" + key
}

// gameKeyPattern returns a SCAN pattern matching every game whose key
// starts with prefix
func gameKeyPattern(prefix string) string {
	return keyPrefix + ":" + globEscaper.Replace(prefix) + "*"
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)
