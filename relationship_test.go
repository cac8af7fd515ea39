package jsonapikit

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockRelationship(ids ...string) Relationship[mockDatum] {
	data := make(OneOrMany[Linkage], 0, len(ids))
	for _, id := range ids {
		data = append(data, Linkage{ID: id, Type: "mock"})
	}
	return Relationship[mockDatum]{Data: data}
}

func TestRelationshipResolveMatch(t *testing.T) {
	included := mockDatum{Type: "mock", ID: "1", Attributes: mockAttributes{Name: "resolved", Value: 200}}
	rel := mockRelationship("1")

	rel.Resolve(NewResolver([]AnyResource{included}, 0))

	require.Len(t, rel.Resolved, 1)
	assert.Equal(t, "1", rel.Resolved[0].ID)
	assert.Equal(t, "resolved", rel.Resolved[0].Attributes.Name)
	assert.True(t, rel.IsResolved())
}

func TestRelationshipResolveNoMatchingID(t *testing.T) {
	rel := mockRelationship("1")

	rel.Resolve(NewResolver([]AnyResource{mockDatum{Type: "mock", ID: "2"}}, 0))

	assert.Nil(t, rel.Resolved)
	assert.Equal(t, OneOrMany[Linkage]{{ID: "1", Type: "mock"}}, rel.Data, "linkage must be preserved")
}

func TestRelationshipResolveMissingType(t *testing.T) {
	rel := mockRelationship("1")

	rel.Resolve(NewResolver([]AnyResource{company{Type: "companies", ID: "1"}}, 0))

	assert.Nil(t, rel.Resolved)
	assert.Len(t, rel.Data, 1)
}

func TestRelationshipResolveMultiple(t *testing.T) {
	rel := mockRelationship("1", "2", "3")
	included := []AnyResource{
		mockDatum{Type: "mock", ID: "2"},
		mockDatum{Type: "mock", ID: "1"},
	}

	rel.Resolve(NewResolver(included, 0))

	require.Len(t, rel.Resolved, 2)
	assert.Equal(t, "1", rel.Resolved[0].ID, "resolved order follows linkage order")
	assert.Equal(t, "2", rel.Resolved[1].ID)
}

func TestRelationshipResolveFirstDuplicateWins(t *testing.T) {
	rel := mockRelationship("1")
	included := []AnyResource{
		mockDatum{Type: "mock", ID: "1", Attributes: mockAttributes{Name: "first"}},
		mockDatum{Type: "mock", ID: "1", Attributes: mockAttributes{Name: "second"}},
	}

	rel.Resolve(NewResolver(included, 0))

	require.Len(t, rel.Resolved, 1)
	assert.Equal(t, "first", rel.Resolved[0].Attributes.Name)
}

func TestRelationshipResolveKeepsLinks(t *testing.T) {
	rel := mockRelationship("1")
	rel.Links = &RelationshipLinks{Self: "https://api.example.com/self", Related: "https://api.example.com/related"}

	rel.Resolve(NewResolver([]AnyResource{mockDatum{Type: "mock", ID: "1"}}, 0))

	require.NotNil(t, rel.Resolved)
	assert.Equal(t, "1", rel.Data[0].ID)
	assert.Equal(t, "https://api.example.com/self", rel.Links.Self)
	assert.Equal(t, "https://api.example.com/related", rel.Links.Related)
}

func TestRelationshipResolveDropsStaleResult(t *testing.T) {
	rel := mockRelationship("1")
	rel.Resolve(NewResolver([]AnyResource{mockDatum{Type: "mock", ID: "1"}}, 0))
	require.NotNil(t, rel.Resolved)

	rel.Resolve(NewResolver(nil, 0))
	assert.Nil(t, rel.Resolved)
}

func TestRelationshipOne(t *testing.T) {
	rel := mockRelationship("1")
	_, ok := rel.One()
	assert.False(t, ok)

	rel.Resolve(NewResolver([]AnyResource{mockDatum{Type: "mock", ID: "1"}}, 0))
	got, ok := rel.One()
	require.True(t, ok)
	assert.Equal(t, "1", got.ID)
}

func TestResolverRecursesIntoIncluded(t *testing.T) {
	included := []AnyResource{
		person{
			Type: "people", ID: "9",
			Attributes: personAttributes{Name: "Dan"},
			Relationships: &personRelationships{
				Employer: Relationship[company]{Data: OneOrMany[Linkage]{{ID: "c1", Type: "companies"}}},
			},
		},
		company{Type: "companies", ID: "c1", Attributes: companyAttributes{Name: "Acme"}},
	}
	a := article{
		Type: "articles", ID: "1",
		Relationships: &articleRelationships{
			Author: Relationship[person]{Data: OneOrMany[Linkage]{{ID: "9", Type: "people"}}},
		},
	}

	resolved := a.WithResolvedRelationships(NewResolver(included, 0)).(article)

	author, ok := resolved.Relationships.Author.One()
	require.True(t, ok)
	employer, ok := author.Relationships.Employer.One()
	require.True(t, ok)
	assert.Equal(t, "Acme", employer.Attributes.Name)

	assert.Nil(t, a.Relationships.Author.Resolved, "the receiver is not modified")
	assert.Nil(t, resolved.Relationships.Comments.Resolved)
}

func TestResolverDepthBound(t *testing.T) {
	included := []AnyResource{
		person{
			Type: "people", ID: "9",
			Relationships: &personRelationships{
				Employer: Relationship[company]{Data: OneOrMany[Linkage]{{ID: "c1", Type: "companies"}}},
			},
		},
		company{Type: "companies", ID: "c1"},
	}
	a := article{
		Type: "articles", ID: "1",
		Relationships: &articleRelationships{
			Author: Relationship[person]{Data: OneOrMany[Linkage]{{ID: "9", Type: "people"}}},
		},
	}

	resolved := a.WithResolvedRelationships(NewResolver(included, 1)).(article)
	author, ok := resolved.Relationships.Author.One()
	require.True(t, ok, "depth 1 still attaches the author")
	employer, ok := author.Relationships.Employer.One()
	require.True(t, ok, "the author's own relationships resolve at depth 1")
	assert.Equal(t, "c1", employer.ID)
}

func genericRef(typeName string, ids ...string) Relationship[GenericResource] {
	data := make(OneOrMany[Linkage], 0, len(ids))
	for _, id := range ids {
		data = append(data, Linkage{ID: id, Type: typeName})
	}
	return Relationship[GenericResource]{Data: data}
}

func TestResolverStopsCycles(t *testing.T) {
	// users/1 and users/2 point at each other.
	included := []AnyResource{
		GenericResource{Type: "users", ID: "1", Relationships: map[string]Relationship[GenericResource]{
			"friend": genericRef("users", "2"),
		}},
		GenericResource{Type: "users", ID: "2", Relationships: map[string]Relationship[GenericResource]{
			"friend": genericRef("users", "1"),
		}},
	}
	root := GenericResource{Type: "users", ID: "1", Relationships: map[string]Relationship[GenericResource]{
		"friend": genericRef("users", "2"),
	}}

	resolved := root.WithResolvedRelationships(NewResolver(included, 0)).(GenericResource)

	var hops []string
	current := resolved
	for {
		friend, ok := current.Relationships["friend"].One()
		if !ok {
			break
		}
		hops = append(hops, friend.ID)
		current = friend
	}
	// users/2 comes back around as linkage only once it is on the path.
	assert.Equal(t, []string{"2", "1", "2"}, hops)
	assert.NotEmpty(t, current.Relationships["friend"].Data, "linkage is kept")
}

func TestResolverStopsCyclesFromPrimary(t *testing.T) {
	included := []AnyResource{
		GenericResource{Type: "users", ID: "1", Relationships: map[string]Relationship[GenericResource]{
			"friend": genericRef("users", "2"),
		}},
		GenericResource{Type: "users", ID: "2", Relationships: map[string]Relationship[GenericResource]{
			"friend": genericRef("users", "1"),
		}},
	}
	root := GenericResource{Type: "users", ID: "1", Relationships: map[string]Relationship[GenericResource]{
		"friend": genericRef("users", "2"),
	}}

	resolved := NewResolver(included, 0).Resolve(root).(GenericResource)

	friend, ok := resolved.Relationships["friend"].One()
	require.True(t, ok)
	back, ok := friend.Relationships["friend"].One()
	require.True(t, ok)
	assert.Equal(t, "1", back.ID)
	assert.False(t, back.Relationships["friend"].IsResolved(), "the primary resource is on the path")
}

func TestResolverDepthBoundOnChain(t *testing.T) {
	// users/1 -> users/2 -> ... -> users/10, no cycle.
	var included []AnyResource
	for i := 2; i <= 10; i++ {
		rels := map[string]Relationship[GenericResource]{}
		if i < 10 {
			rels["next"] = genericRef("users", strconv.Itoa(i+1))
		}
		included = append(included, GenericResource{Type: "users", ID: strconv.Itoa(i), Relationships: rels})
	}
	root := GenericResource{Type: "users", ID: "1", Relationships: map[string]Relationship[GenericResource]{
		"next": genericRef("users", "2"),
	}}

	resolved := NewResolver(included, 3).Resolve(root).(GenericResource)

	hops := 0
	for current := resolved; ; hops++ {
		next, ok := current.Relationships["next"].One()
		if !ok {
			break
		}
		current = next
	}
	// Three nested resolutions, then one more hop attached with linkage only.
	assert.Equal(t, 4, hops)
}

func TestResolverFanOutCycle(t *testing.T) {
	// An article's author wrote six articles, each pointing back at the author.
	articleIDs := []string{"1", "2", "3", "4", "5", "6"}
	included := []AnyResource{
		GenericResource{Type: "people", ID: "p", Relationships: map[string]Relationship[GenericResource]{
			"articles": genericRef("articles", articleIDs...),
		}},
	}
	for _, id := range articleIDs {
		included = append(included, GenericResource{Type: "articles", ID: id, Relationships: map[string]Relationship[GenericResource]{
			"author": genericRef("people", "p"),
		}})
	}
	resp := Response[GenericResource]{
		Data: OneOrMany[GenericResource]{{Type: "articles", ID: "0", Relationships: map[string]Relationship[GenericResource]{
			"author": genericRef("people", "p"),
		}}},
		Included: included,
	}

	done := make(chan Response[GenericResource], 1)
	go func() { done <- resp.Resolved() }()

	var resolved Response[GenericResource]
	select {
	case resolved = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("resolution did not finish")
	}

	author, ok := resolved.Data[0].Relationships["author"].One()
	require.True(t, ok)
	written := author.Relationships["articles"].Resolved
	require.Len(t, written, 6)
	for _, a := range written {
		back, ok := a.Relationships["author"].One()
		require.True(t, ok, "the back reference keeps its target")
		assert.Equal(t, "p", back.ID)
		assert.False(t, back.Relationships["articles"].IsResolved(), "the author is not expanded again")
	}
}

func TestResolverDenseGraph(t *testing.T) {
	// Twelve users who all know each other.
	const n = 12
	ids := make([]string, n)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	var included []AnyResource
	for _, id := range ids {
		included = append(included, GenericResource{Type: "users", ID: id, Relationships: map[string]Relationship[GenericResource]{
			"knows": genericRef("users", ids...),
		}})
	}
	resp := Response[GenericResource]{Data: OneOrMany[GenericResource]{included[0].(GenericResource)}, Included: included}

	done := make(chan Response[GenericResource], 1)
	go func() { done <- resp.Resolved() }()

	select {
	case resolved := <-done:
		require.Len(t, resolved.Data, 1)
		assert.Len(t, resolved.Data[0].Relationships["knows"].Resolved, n)
	case <-time.After(5 * time.Second):
		t.Fatal("resolution did not finish")
	}
}

func TestResolverLookup(t *testing.T) {
	res := NewResolver([]AnyResource{mockDatum{Type: "mock", ID: "1"}, nil}, 0)

	_, ok := res.Lookup("mock", "1")
	assert.True(t, ok)
	_, ok = res.Lookup("mock", "2")
	assert.False(t, ok)
	_, ok = res.Lookup("other", "1")
	assert.False(t, ok)
	assert.Equal(t, 0, res.Depth())
}
