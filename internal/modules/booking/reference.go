package booking

import (
	"fmt"
	"regexp"
	"time"
)

var referencePattern = regexp.MustCompile(`^[A-Z]{3}-\d{6}-\d{4}$`)

// GenerateReference formats PREFIX-YYMMDD-NNNN. Uniqueness is left to the
// unique index; callers regenerate on conflict.
func GenerateReference(prefix string, now time.Time, suffix int) string {
	if suffix < 0 {
		suffix = -suffix
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, now.Format("060102"), suffix%10000)
}

func ValidReference(ref string) bool {
	return referencePattern.MatchString(ref)
}
