package calculator

import (
	"fmt"
	"sort"

	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
)

// ValidateSelections checks caller selections against the table's own codes.
// Unknown factor codes, unknown options and unknown riders are rejected.
func ValidateSelections(snap *ratetabledomain.Snapshot, factors map[string]string, riders map[string]bool) error {
	for _, code := range sortedKeys(factors) {
		value := factors[code]
		group, ok := snap.FactorGroup(code)
		if !ok {
			return fmt.Errorf("%w: unknown factor %q", ErrInvalidSelection, code)
		}
		if value == "" {
			continue
		}
		if _, ok := group.Option(value); !ok {
			return fmt.Errorf("%w: factor %s has no option %q", ErrInvalidSelection, code, value)
		}
	}
	for _, code := range sortedKeys(riders) {
		if _, ok := snap.Rider(code); !ok {
			return fmt.Errorf("%w: unknown rider %q", ErrInvalidSelection, code)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
