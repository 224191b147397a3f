package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks an [Entity] for required fields and a valid kind.
//
// Rules:
//   - ID must carry the [IDScheme] prefix.
//   - Kind must be a recognised [Kind].
//   - Name must be non-empty.
//   - Status must be empty or [StatusUnimplemented].
func Validate(e Entity) error {
	var errs []error

	if !strings.HasPrefix(e.ID, IDScheme) {
		errs = append(errs, fmt.Errorf("id %q must start with %q", e.ID, IDScheme))
	}

	if !e.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("type %q is not a recognised entity kind", e.Kind))
	}

	if e.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}

	if e.Status != "" && e.Status != StatusUnimplemented {
		errs = append(errs, fmt.Errorf("status %q is invalid; valid values: %q or empty", e.Status, StatusUnimplemented))
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
