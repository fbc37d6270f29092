package timetable

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ResourceKind is the kind of resource an entry books.
type ResourceKind string

const (
	KindTeacher ResourceKind = "teacher"
	KindRoom    ResourceKind = "room"
	KindClass   ResourceKind = "class"
)

// ResourceKinds lists every kind, in display order.
var ResourceKinds = []ResourceKind{KindTeacher, KindRoom, KindClass}

func (k ResourceKind) Valid() bool {
	switch k {
	case KindTeacher, KindRoom, KindClass:
		return true
	}
	return false
}

func ParseResourceKind(s string) (ResourceKind, error) {
	k := ResourceKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", errors.Wrapf(ErrInvalidEntry, "unknown resource kind %q", s)
	}
	return k, nil
}

// ResourceKey identifies one bookable resource, e.g. teacher T1 or room R5.
type ResourceKey struct {
	Kind ResourceKind `json:"kind"`
	ID   string       `json:"id"`
}

func Teacher(id string) ResourceKey { return ResourceKey{Kind: KindTeacher, ID: id} }
func Room(id string) ResourceKey    { return ResourceKey{Kind: KindRoom, ID: id} }
func Class(id string) ResourceKey   { return ResourceKey{Kind: KindClass, ID: id} }

func (k ResourceKey) String() string {
	return string(k.Kind) + " " + k.ID
}

func (k ResourceKey) validate() error {
	if !k.Kind.Valid() {
		return errors.Wrapf(ErrInvalidEntry, "unknown resource kind %q", k.Kind)
	}
	if strings.TrimSpace(k.ID) == "" {
		return errors.Wrapf(ErrInvalidEntry, "%s id is required", k.Kind)
	}
	return nil
}

func kindOrder(k ResourceKind) int {
	for i, kind := range ResourceKinds {
		if kind == k {
			return i
		}
	}
	return len(ResourceKinds)
}

// Resources is a set of resource keys. Values built by NewResources are sorted and free of duplicates.
type Resources []ResourceKey

// NewResources validates and normalizes the keys. An empty set is allowed here;
// entries reject it on their own.
func NewResources(keys ...ResourceKey) (Resources, error) {
	res := make(Resources, 0, len(keys))
	seen := make(map[ResourceKey]bool, len(keys))
	for _, k := range keys {
		k.ID = strings.TrimSpace(k.ID)
		if err := k.validate(); err != nil {
			return nil, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		res = append(res, k)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Kind != res[j].Kind {
			return kindOrder(res[i].Kind) < kindOrder(res[j].Kind)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

// MustResources is like NewResources but panics on invalid keys.
func MustResources(keys ...ResourceKey) Resources {
	res, err := NewResources(keys...)
	if err != nil {
		panic(err)
	}
	return res
}

func (r Resources) Contains(key ResourceKey) bool {
	for _, k := range r {
		if k == key {
			return true
		}
	}
	return false
}

// Shared returns the keys present in both sets, in r's order.
func (r Resources) Shared(other Resources) Resources {
	var shared Resources
	for _, k := range r {
		if other.Contains(k) {
			shared = append(shared, k)
		}
	}
	return shared
}

// Intersects reports whether both sets have at least one key in common.
func (r Resources) Intersects(other Resources) bool {
	for _, k := range r {
		if other.Contains(k) {
			return true
		}
	}
	return false
}

// IDs returns the identifiers of the given kind.
func (r Resources) IDs(kind ResourceKind) []string {
	var ids []string
	for _, k := range r {
		if k.Kind == kind {
			ids = append(ids, k.ID)
		}
	}
	return ids
}

func (r Resources) String() string {
	parts := make([]string, len(r))
	for i, k := range r {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}
