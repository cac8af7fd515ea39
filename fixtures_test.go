package jsonapikit

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
)

type noRelationships struct{}

type mockAttributes struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type mockDatum = Resource[mockAttributes, noRelationships]

type companyAttributes struct {
	Name string `json:"name"`
}

type company = Resource[companyAttributes, noRelationships]

type personAttributes struct {
	Name string `json:"name"`
}

type personRelationships struct {
	Employer Relationship[company] `json:"employer"`
}

func (r *personRelationships) LinkRelationships(res *Resolver) {
	r.Employer.Resolve(res)
}

type person = Resource[personAttributes, personRelationships]

type commentAttributes struct {
	Body string `json:"body"`
}

type comment = Resource[commentAttributes, noRelationships]

type articleAttributes struct {
	Title string `json:"title"`
	Views int    `json:"views"`
}

type articleRelationships struct {
	Author   Relationship[person]  `json:"author"`
	Comments Relationship[comment] `json:"comments"`
}

func (r *articleRelationships) LinkRelationships(res *Resolver) {
	r.Author.Resolve(res)
	r.Comments.Resolve(res)
}

type article = Resource[articleAttributes, articleRelationships]

func newTestRegistry() *Registry {
	reg := NewRegistry()
	RegisterResource[mockDatum](reg, "mock")
	RegisterResource[company](reg, "companies")
	RegisterResource[person](reg, "people")
	RegisterResource[comment](reg, "comments")
	RegisterResource[article](reg, "articles")
	return reg
}

// testDelegate counts auth notifications on buffered channels so tests can
// wait for the fire-and-forget calls.
type testDelegate struct {
	StaticDelegate
	unauthorized chan struct{}
	forbidden    chan struct{}
	expired      atomic.Bool
}

func newTestDelegate(t *testing.T, endpoint string) *testDelegate {
	t.Helper()
	u, err := url.Parse(endpoint)
	if err != nil {
		t.Fatalf("Failed to parse endpoint: %v", err)
	}
	p := PaginationOffsetLimit
	d := &testDelegate{
		StaticDelegate: StaticDelegate{Endpoint: u, Token: "test-token", Pagination: &p},
		unauthorized:   make(chan struct{}, 8),
		forbidden:      make(chan struct{}, 8),
	}
	return d
}

func (d *testDelegate) IsTokenExpired() bool { return d.expired.Load() }

func (d *testDelegate) DidReceiveUnauthorized() { d.unauthorized <- struct{}{} }

func (d *testDelegate) DidReceiveForbidden() { d.forbidden <- struct{}{} }

// newMockAPI serves a router under /v1/ and returns a client pointed at it.
func newMockAPI(t *testing.T, routes func(r chi.Router), opts ...Option) (*Client, *testDelegate) {
	t.Helper()
	router := chi.NewRouter()
	router.Route("/v1", routes)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	delegate := newTestDelegate(t, server.URL+"/v1/")
	opts = append([]Option{WithRegistry(newTestRegistry())}, opts...)
	return New(delegate, opts...), delegate
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", string(ContentTypeJSONAPI))
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
