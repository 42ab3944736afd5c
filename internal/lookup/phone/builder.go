package phone

import "idsearch/internal/lookup/models"

// Builder accumulates entries, aggregating tags instead of duplicating a
// number already emitted with the same type.
type Builder struct {
	entries []models.PhoneEntry
	keys    []string
}

// Add formats raw and records it under typ, or merges tag into an existing
// entry with the same type and normalized value.
func (b *Builder) Add(typ models.PhoneType, raw, tag string) {
	value, shape := Format(raw)
	if value == "" {
		return
	}
	typ = typeFor(typ, shape)
	key := Normalize(raw)
	for i, e := range b.entries {
		if e.Type == typ && b.keys[i] == key {
			b.entries[i] = e.AddSources(tag)
			return
		}
	}
	b.entries = append(b.entries, models.PhoneEntry{Type: typ, DisplayValue: value}.AddSources(tag))
	b.keys = append(b.keys, key)
}

// Tag merges tag into the first entry of any type carrying the same
// normalized value. It reports whether such an entry existed.
func (b *Builder) Tag(raw, tag string) bool {
	key := Normalize(raw)
	for i := range b.entries {
		if b.keys[i] == key {
			b.entries[i] = b.entries[i].AddSources(tag)
			return true
		}
	}
	return false
}

// Entries returns the accumulated entries in emission order.
func (b *Builder) Entries() []models.PhoneEntry {
	out := make([]models.PhoneEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

func typeFor(intended models.PhoneType, shape Shape) models.PhoneType {
	switch shape {
	case ShapeOther:
		return models.PhoneOther
	case ShapeExtension:
		if intended == models.PhoneBusinessDID {
			return models.PhoneExtension
		}
		return intended
	default:
		if intended == models.PhoneExtension {
			return models.PhoneBusinessDID
		}
		return intended
	}
}
