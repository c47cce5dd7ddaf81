package domain

import (
	"fmt"
	"maps"
	"slices"
)

// Record is the value type kept by the record stores.
type Record struct {
	ID         uint64            `json:"id"`
	Name       string            `json:"name"`
	Contact    string            `json:"contact"`
	Roles      []string          `json:"roles"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewRecord returns a record with no roles and no attributes.
func NewRecord(id uint64, name, contact string) *Record {
	return &Record{
		ID:         id,
		Name:       name,
		Contact:    contact,
		Roles:      []string{},
		Attributes: map[string]string{},
	}
}

// AddRole appends role and returns the same record so calls can be chained.
// Duplicates are kept; order is insertion order.
func (r *Record) AddRole(role string) *Record {
	r.Roles = append(r.Roles, role)
	return r
}

// WithMetadata sets the attribute key to value and returns the same record.
func (r *Record) WithMetadata(key, value string) *Record {
	if r.Attributes == nil {
		r.Attributes = map[string]string{}
	}
	r.Attributes[key] = value
	return r
}

// Metadata looks up an attribute.
func (r Record) Metadata(key string) (string, bool) {
	v, ok := r.Attributes[key]
	return v, ok
}

// Clone returns a deep copy that shares no slices or maps with r.
func (r Record) Clone() Record {
	out := r
	out.Roles = slices.Clone(r.Roles)
	if out.Roles == nil {
		out.Roles = []string{}
	}
	out.Attributes = maps.Clone(r.Attributes)
	return out
}

func (r Record) String() string {
	return fmt.Sprintf("%s <%s>", r.Name, r.Contact)
}
