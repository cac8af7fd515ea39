package jsonapikit

// DefaultMaxResolveDepth bounds how far relationship resolution follows
// included resources into their own relationships.
const DefaultMaxResolveDepth = 32

// RelationshipLinks is the links object of a relationship.
type RelationshipLinks struct {
	Self    string `json:"self,omitempty"`
	Related string `json:"related,omitempty"`
}

// Relationship is a to-one or to-many relationship to resources of type T.
// Resolved is filled only by Resolve and never encoded.
type Relationship[T AnyResource] struct {
	Data     OneOrMany[Linkage] `json:"data,omitempty"`
	Links    *RelationshipLinks `json:"links,omitempty"`
	Resolved []T                `json:"-"`
}

// Resolve replaces Resolved with the included resources matching the
// linkage. Each match is itself resolved before being attached. Resolved
// stays nil unless at least one linkage entry matched; Data is kept as is.
func (r *Relationship[T]) Resolve(res *Resolver) {
	r.Resolved = nil
	if res == nil || len(r.Data) == 0 {
		return
	}

	var resolved []T
	for _, link := range r.Data {
		included, ok := res.Lookup(link.Type, link.ID)
		if !ok {
			continue
		}
		if v, ok := res.descend(included).(T); ok {
			resolved = append(resolved, v)
		}
	}
	r.Resolved = resolved
}

// One returns the first resolved resource of a to-one relationship.
func (r Relationship[T]) One() (T, bool) {
	var zero T
	if len(r.Resolved) == 0 {
		return zero, false
	}
	return r.Resolved[0], true
}

// IsResolved reports whether any linkage entry was matched.
func (r Relationship[T]) IsResolved() bool {
	return r.Resolved != nil
}

// Resolver indexes included resources by type for relationship resolution.
// A resource already being resolved higher up the current path is attached
// with its relationships left as linkage only, and each included resource is
// expanded once per resolver tree and then reused. maxDepth bounds the path
// length on top of that.
type Resolver struct {
	state  *resolveState
	depth  int
	parent *Resolver
	key    string
}

type resolveState struct {
	byType   map[string][]AnyResource
	maxDepth int
	expanded map[string]AnyResource
}

// NewResolver indexes included, keeping insertion order and duplicates.
// A maxDepth of zero or less uses DefaultMaxResolveDepth.
func NewResolver(included []AnyResource, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxResolveDepth
	}
	byType := make(map[string][]AnyResource)
	for _, inc := range included {
		if inc == nil {
			continue
		}
		byType[inc.ResourceType()] = append(byType[inc.ResourceType()], inc)
	}
	return &Resolver{
		state: &resolveState{
			byType:   byType,
			maxDepth: maxDepth,
			expanded: make(map[string]AnyResource),
		},
	}
}

// Lookup returns the first included resource with the given type and id.
func (r *Resolver) Lookup(typeName, id string) (AnyResource, bool) {
	for _, inc := range r.state.byType[typeName] {
		if inc.ResourceID() == id {
			return inc, true
		}
	}
	return nil, false
}

// Depth is the nesting level this resolver works at; primary data is 0.
func (r *Resolver) Depth() int {
	return r.depth
}

// Resolve returns res with its relationships linked at this resolver's
// depth. res counts as visited for everything resolved beneath it.
func (r *Resolver) Resolve(res AnyResource) AnyResource {
	return r.enter(res, r.depth)
}

func (r *Resolver) enter(res AnyResource, depth int) AnyResource {
	rr, ok := res.(RelationshipResolver)
	if !ok {
		return res
	}
	node := &Resolver{
		state:  r.state,
		depth:  depth,
		parent: r,
		key:    resourceKey(res),
	}
	return rr.WithResolvedRelationships(node)
}

// descend resolves an included resource one level deeper. Past maxDepth, or
// when the resource is already on the current path, it is attached with its
// relationships left as linkage only.
func (r *Resolver) descend(res AnyResource) AnyResource {
	key := resourceKey(res)
	if r.depth+1 > r.state.maxDepth || r.onPath(key) {
		return res
	}
	if done, ok := r.state.expanded[key]; ok {
		return done
	}
	done := r.enter(res, r.depth+1)
	r.state.expanded[key] = done
	return done
}

func (r *Resolver) onPath(key string) bool {
	for p := r; p != nil; p = p.parent {
		if p.key == key {
			return true
		}
	}
	return false
}

func resourceKey(res AnyResource) string {
	return res.ResourceType() + "/" + res.ResourceID()
}
