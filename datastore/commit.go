package datastore

// Parcel is the content of one version of the data: the values of the data
// keys and, independently, the metadata entries attached to data keys.
type Parcel struct {
	Data     map[Key]Value
	Metadata map[Key]map[Key]Value
}

// NewParcel returns an empty parcel.
func NewParcel() *Parcel {
	return &Parcel{
		Data:     make(map[Key]Value),
		Metadata: make(map[Key]map[Key]Value),
	}
}

// IsEmpty returns true if the parcel has neither data nor metadata.
func (p *Parcel) IsEmpty() bool {
	return len(p.Data) == 0 && len(p.Metadata) == 0
}

// Keys returns the data keys starting with the prefix.
func (p *Parcel) Keys(prefix string) KeySet {
	keys := make(KeySet)
	for key := range p.Data {
		if key.HasPrefix(prefix) {
			keys.Add(key)
		}
	}

	return keys
}

// MetadataKeys returns the metadata names of every data key starting with the
// prefix.
func (p *Parcel) MetadataKeys(prefix string) map[Key]KeySet {
	res := make(map[Key]KeySet)
	for key, entries := range p.Metadata {
		if !key.HasPrefix(prefix) || len(entries) == 0 {
			continue
		}

		names := make(KeySet, len(entries))
		for name := range entries {
			names.Add(name)
		}

		res[key] = names
	}

	return res
}

// SetMetadata sets a metadata entry of the data key.
func (p *Parcel) SetMetadata(metadataKey, dataKey Key, value Value) {
	entries := p.Metadata[dataKey]
	if entries == nil {
		entries = make(map[Key]Value)
		p.Metadata[dataKey] = entries
	}

	entries[metadataKey] = value
}

// DeleteMetadata removes a metadata entry of the data key.
func (p *Parcel) DeleteMetadata(metadataKey, dataKey Key) {
	entries := p.Metadata[dataKey]

	delete(entries, metadataKey)

	if len(entries) == 0 {
		delete(p.Metadata, dataKey)
	}
}

// Clone returns a deep copy of the parcel.
func (p *Parcel) Clone() *Parcel {
	clone := NewParcel()

	for key, value := range p.Data {
		clone.Data[key] = CopyValue(value)
	}

	for key, entries := range p.Metadata {
		for name, value := range entries {
			clone.SetMetadata(name, key, CopyValue(value))
		}
	}

	return clone
}

// MergePending computes the live version resulting from the commit of the
// pending version. Every pending value overwrites the live one, and live keys
// that would be incompatible with a committed key, for instance a scalar "a.b"
// replaced by an object holding "a.b.c", are dropped. The pending metadata
// entries are copied verbatim. Live keys untouched by the transaction are kept
// as they are.
//
// The live parcel is left unchanged. It returns the new live parcel and the
// data keys that were committed.
func MergePending(live, pending *Parcel) (*Parcel, KeySet) {
	merged := live.Clone()
	committed := make(KeySet, len(pending.Data))

	for key, value := range pending.Data {
		for other := range merged.Data {
			if key.Conflicts(other) {
				delete(merged.Data, other)
			}
		}

		merged.Data[key] = CopyValue(value)
		committed.Add(key)
	}

	for key, entries := range pending.Metadata {
		for name, value := range entries {
			merged.SetMetadata(name, key, CopyValue(value))
		}
	}

	return merged, committed
}
