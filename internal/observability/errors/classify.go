package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	domainauth "github.com/target/medsurge/internal/domain/auth"
)

// Classify returns a normalized error class suitable for tagging metrics/logs.
// Identity errors are tagged by their kind; anything else by the innermost
// concrete type, converted to snake_case-ish.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var ae *domainauth.Error
	if goerrors.As(err, &ae) {
		return string(ae.Kind)
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
