package rediskey

import "fmt"

// Key prefixes (global convention across services)
const (
	SequencePrefix = "seq"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildSequenceKey returns "seq:{kind}:{scope}:{date}"
func BuildSequenceKey(kind, scope, date string) string {
	return NamespaceKey(SequencePrefix, fmt.Sprintf("%s:%s:%s", kind, scope, date))
}
