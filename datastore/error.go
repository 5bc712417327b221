package datastore

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind is the category of a data store failure.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors outside of the taxonomy.
	KindUnknown Kind = iota

	// KindKeyNotFound is the kind of a read of an absent key.
	KindKeyNotFound

	// KindInvalidKey is the kind of a malformed key, or of a key of the wrong
	// type for the operation.
	KindInvalidKey

	// KindSerialization is the kind of a failed conversion between trees, flat
	// mappings and values.
	KindSerialization

	// KindIO is the kind of a failure of the physical storage.
	KindIO

	// KindCorruption is the kind of stored data that cannot be read back.
	KindCorruption
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindKeyNotFound:   "key not found",
	KindInvalidKey:    "invalid key",
	KindSerialization: "serialization",
	KindIO:            "io",
	KindCorruption:    "corruption",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	name, found := kindNames[k]
	if !found {
		return fmt.Sprintf("kind(%d)", int(k))
	}

	return name
}

// Sentinels to compare errors against with xerrors.Is or errors.Is. They match
// any error of the same kind.
var (
	ErrKeyNotFound   = &Error{Kind: KindKeyNotFound}
	ErrInvalidKey    = &Error{Kind: KindInvalidKey}
	ErrSerialization = &Error{Kind: KindSerialization}
	ErrIO            = &Error{Kind: KindIO}
	ErrCorruption    = &Error{Kind: KindCorruption}
)

// Error is the only error type returned by the operations of a data store.
type Error struct {
	Kind Kind

	// Key is the dotted name involved, if any.
	Key string

	// Path is the physical location involved, if any.
	Path string

	// Msg describes the failure.
	Msg string

	// Err is the underlying cause, if any.
	Err error
}

// NewKeyNotFound returns an error for a read of an absent key.
func NewKeyNotFound(key string) *Error {
	return &Error{Kind: KindKeyNotFound, Key: key}
}

// NewInvalidKey returns an error for a malformed key.
func NewInvalidKey(key, msg string) *Error {
	return &Error{Kind: KindInvalidKey, Key: key, Msg: msg}
}

// NewSerialization returns an error for a failed conversion. The cause is
// optional.
func NewSerialization(msg string, err error) *Error {
	return &Error{Kind: KindSerialization, Msg: msg, Err: err}
}

// NewIO returns an error for a failed operation on the physical storage.
func NewIO(op, path string, err error) *Error {
	return &Error{Kind: KindIO, Path: path, Msg: op, Err: err}
}

// NewCorruption returns an error for stored data that cannot be read.
func NewCorruption(path, msg string) *Error {
	return &Error{Kind: KindCorruption, Path: path, Msg: msg}
}

// Error implements error.
func (e *Error) Error() string {
	var str string

	switch e.Kind {
	case KindKeyNotFound:
		str = fmt.Sprintf("key '%s' not found", e.Key)
	case KindInvalidKey:
		str = fmt.Sprintf("invalid key '%s': %s", e.Key, e.Msg)
	case KindSerialization:
		if e.Key != "" {
			str = fmt.Sprintf("serialization failed for key '%s': %s", e.Key, e.Msg)
		} else {
			str = "serialization failed: " + e.Msg
		}
	case KindIO:
		str = fmt.Sprintf("failed to %s '%s'", e.Msg, e.Path)
	case KindCorruption:
		str = fmt.Sprintf("corrupted data in '%s': %s", e.Path, e.Msg)
	default:
		str = e.Msg
	}

	if e.Err != nil {
		str = fmt.Sprintf("%s: %v", str, e.Err)
	}

	return str
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target is a sentinel of the same kind, or an error
// with the same kind and key.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}

	if other.Kind != e.Kind {
		return false
	}

	return other.Key == "" || other.Key == e.Key
}

// KindOf returns the kind of the error, or KindUnknown if the error does not
// belong to the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}
