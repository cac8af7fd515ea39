package jsonapikit

import (
	"bytes"
	"encoding/json"
)

// AnyResource is any decoded JSON:API resource object.
type AnyResource interface {
	ResourceType() string
	ResourceID() string
}

// RelationshipResolver is implemented by resources that can substitute
// included resources into their relationships. The receiver is not modified.
type RelationshipResolver interface {
	WithResolvedRelationships(res *Resolver) AnyResource
}

// RelationshipLinker is implemented by a resource's relationships payload.
// Implementations call Resolve on each Relationship field:
//
//	func (r *ArticleRelationships) LinkRelationships(res *jsonapikit.Resolver) {
//		r.Author.Resolve(res)
//		r.Comments.Resolve(res)
//	}
type RelationshipLinker interface {
	LinkRelationships(res *Resolver)
}

// SelfLinks is the links object of a resource.
type SelfLinks struct {
	Self string `json:"self,omitempty"`
}

// Linkage identifies a related resource before resolution.
type Linkage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Resource is a typed resource object with attributes A and relationships R.
// Declare concrete resources as aliases:
//
//	type Article = jsonapikit.Resource[ArticleAttributes, ArticleRelationships]
type Resource[A any, R any] struct {
	Type          string    `json:"type"`
	ID            string    `json:"id"`
	Links         SelfLinks `json:"links"`
	Attributes    A         `json:"attributes"`
	Relationships *R        `json:"relationships,omitempty"`
}

func (r Resource[A, R]) ResourceType() string { return r.Type }

func (r Resource[A, R]) ResourceID() string { return r.ID }

// WithResolvedRelationships returns a copy of r whose relationships have been
// linked against res. R must implement RelationshipLinker through a pointer
// receiver for anything to happen.
func (r Resource[A, R]) WithResolvedRelationships(res *Resolver) AnyResource {
	return r.resolved(res)
}

func (r Resource[A, R]) resolved(res *Resolver) Resource[A, R] {
	if r.Relationships == nil || res == nil {
		return r
	}
	rels := *r.Relationships
	linker, ok := any(&rels).(RelationshipLinker)
	if !ok {
		return r
	}
	linker.LinkRelationships(res)
	r.Relationships = &rels
	return r
}

// OneOrMany decodes either a single JSON value or an array into a slice.
// It always encodes as an array.
type OneOrMany[T any] []T

func (m *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}

	var many []T
	if err := json.Unmarshal(data, &many); err == nil {
		*m = many
		return nil
	}

	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*m = OneOrMany[T]{one}
	return nil
}

func (m OneOrMany[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]T(m))
}

// First returns the first element, if any.
func (m OneOrMany[T]) First() (T, bool) {
	var zero T
	if len(m) == 0 {
		return zero, false
	}
	return m[0], true
}

// GenericResource keeps attributes raw and resolves every relationship. It
// serves tooling that does not know the resource types ahead of time.
type GenericResource struct {
	Type          string                                   `json:"type"`
	ID            string                                   `json:"id"`
	Links         SelfLinks                                `json:"links"`
	Attributes    json.RawMessage                          `json:"attributes,omitempty"`
	Relationships map[string]Relationship[GenericResource] `json:"relationships,omitempty"`
}

func (g GenericResource) ResourceType() string { return g.Type }

func (g GenericResource) ResourceID() string { return g.ID }

func (g GenericResource) WithResolvedRelationships(res *Resolver) AnyResource {
	if len(g.Relationships) == 0 || res == nil {
		return g
	}
	rels := make(map[string]Relationship[GenericResource], len(g.Relationships))
	for name, rel := range g.Relationships {
		rel.Resolve(res)
		rels[name] = rel
	}
	g.Relationships = rels
	return g
}

// RegisterGenericTypes registers GenericResource under each of typeNames.
func RegisterGenericTypes(reg *Registry, typeNames ...string) {
	for _, name := range typeNames {
		RegisterResource[GenericResource](reg, name)
	}
}
