package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber generates a human-facing order number: a date component for
// operators plus 8 hex characters of random entropy against collision. The
// orders table additionally enforces uniqueness with an index.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("SO-%s-%s", now.Format("20060102"), suffix)
}
