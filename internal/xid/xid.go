// Package xid builds prefixed identifiers for audit entries and requests.
package xid

import (
	"strings"

	"github.com/google/uuid"
)

func New(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "-" + strings.ReplaceAll(id, "-", "")
}
