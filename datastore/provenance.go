package datastore

import "fmt"

// DefaultsMetadataName is the name of the metadata entry telling whether a
// value was derived from a system default.
const DefaultsMetadataName = "from-defaults"

// DefaultsMetadata is the metadata key of the default-provenance flag.
var DefaultsMetadata = MustKey(MetaKey, DefaultsMetadataName)

// Provenance tells where a value comes from.
type Provenance int

const (
	// ProvenanceUnknown is used when no provenance has been recorded.
	ProvenanceUnknown Provenance = iota

	// ProvenanceDefault marks a value derived from a system default.
	ProvenanceDefault

	// ProvenanceUser marks a value explicitly set by a user or a generator.
	ProvenanceUser
)

// String implements fmt.Stringer.
func (p Provenance) String() string {
	switch p {
	case ProvenanceDefault:
		return "default"
	case ProvenanceUser:
		return "user"
	default:
		return "unknown"
	}
}

// SetProvenance records the provenance of the data key. Setting an unknown
// provenance removes the record.
func SetProvenance(store DataStore, key Key, p Provenance, committed Committed) error {
	switch p {
	case ProvenanceDefault:
		return store.SetMetadata(DefaultsMetadata, key, true, committed)
	case ProvenanceUser:
		return store.SetMetadata(DefaultsMetadata, key, false, committed)
	default:
		return store.DeleteMetadata(DefaultsMetadata, key, committed)
	}
}

// GetProvenance reads the provenance of the data key. An absent record is an
// unknown provenance and not an error, while a record that is not a boolean
// is reported as a corruption.
func GetProvenance(store DataStore, key Key, committed Committed) (Provenance, error) {
	value, err := store.GetMetadata(DefaultsMetadata, key, committed)
	if KindOf(err) == KindKeyNotFound {
		return ProvenanceUnknown, nil
	}
	if err != nil {
		return ProvenanceUnknown, err
	}

	isDefault, ok := value.(bool)
	if !ok {
		return ProvenanceUnknown, NewCorruption(key.Name(),
			fmt.Sprintf("metadata '%s' is not a boolean: %v", DefaultsMetadataName, value))
	}

	if isDefault {
		return ProvenanceDefault, nil
	}

	return ProvenanceUser, nil
}
