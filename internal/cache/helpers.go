package cache

import "strings"

const keyPrefix = "fashionx"

// Key joins parts into a namespaced redis key
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}
