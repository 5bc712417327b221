package datastore

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// ValidateWrite checks a batch of values before anything is written. Every
// key must be a data key, every value must be a scalar or a list of scalars,
// and no key of the batch can be the ancestor of another key of the batch or
// of a key already populated. It returns the normalized values.
//
// Key types are checked first and the first invalid key is returned. The
// other problems are reported at once.
func ValidateWrite(pairs map[Key]Value, existing KeySet) (map[Key]Value, error) {
	keys := make([]Key, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Name() < keys[j].Name()
	})

	for _, key := range keys {
		err := CheckKey(key, DataKey)
		if err != nil {
			return nil, err
		}
	}

	var result *multierror.Error

	normalized := make(map[Key]Value, len(pairs))

	for _, key := range keys {
		value, err := NormalizeValue(pairs[key])
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("key '%s': %s", key, messageOf(err)))
			continue
		}

		normalized[key] = value
	}

	for i, key := range keys {
		for _, other := range keys[i+1:] {
			if key.Conflicts(other) {
				result = multierror.Append(result,
					fmt.Errorf("keys '%s' and '%s' are incompatible", key, other))
			}
		}

		for other := range existing {
			_, inBatch := pairs[other]
			if !inBatch && key.Conflicts(other) {
				result = multierror.Append(result,
					fmt.Errorf("key '%s' is incompatible with existing key '%s'", key, other))
			}
		}
	}

	if result == nil {
		return normalized, nil
	}

	result.ErrorFormat = formatErrors

	return nil, NewSerialization("invalid batch", result)
}

func messageOf(err error) string {
	e, ok := err.(*Error)
	if ok {
		return e.Msg
	}

	return err.Error()
}

func formatErrors(errs []error) string {
	str := fmt.Sprintf("%d error(s)", len(errs))
	for _, err := range errs {
		str += "; " + err.Error()
	}

	return str
}
