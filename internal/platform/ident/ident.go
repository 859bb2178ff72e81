// Package ident mints the prefixed identifiers used as natural keys.
package ident

import (
	"fmt"

	"github.com/google/uuid"
)

// Generate returns the first non-empty override verbatim, otherwise
// "{prefix}-{uuid4}".
func Generate(prefix string, override ...string) string {
	for _, o := range override {
		if o != "" {
			return o
		}
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// FromValue uses v as the override when it is a non-empty string.
func FromValue(prefix string, v interface{}) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return Generate(prefix)
}
