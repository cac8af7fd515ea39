// Package jsonapikit is a client for JSON:API and plain REST backends:
//
//   - Typed resources with relationships resolved from "included" side-loads
//   - A registry that decodes heterogeneous included resources by wire type
//   - Filter, sort and include tokens rendered as ordered query parameters
//   - Request execution that rejects a request while an identical one is in flight
//   - One error type (ClientError) covering misuse, auth, transport and server failures
//   - Pagination by following and appending "next" links
//   - Prometheus metrics and opt-in structured debug logging
//
// Runtime configuration (endpoint, token, pagination keys, headers, error
// format) comes from a Delegate, which is also told about 401 and 403 responses.
//
// Typical usage:
//
//	type ArticleAttributes struct {
//	    Title string `json:"title"`
//	}
//	type ArticleRelationships struct {
//	    Author jsonapikit.Relationship[Person] `json:"author"`
//	}
//	func (r *ArticleRelationships) LinkRelationships(res *jsonapikit.Resolver) {
//	    r.Author.Resolve(res)
//	}
//	type Article = jsonapikit.Resource[ArticleAttributes, ArticleRelationships]
//
//	jsonapikit.RegisterResource[Person](nil, "people")
//
//	delegate, _ := jsonapikit.NewStaticDelegate("https://api.example.com/v1/", token)
//	client := jsonapikit.New(delegate, jsonapikit.WithMetrics())
//
//	articles := jsonapikit.NewEndpoint[Article, jsonapikit.FilterCase, string, string]("articles")
//	resp, err := articles.List(ctx, client, jsonapikit.ListOptions[jsonapikit.FilterCase, string, string]{
//	    Filters: []jsonapikit.FilterCase{jsonapikit.Filter("search", "go")},
//	    Sort:    []string{jsonapikit.Desc("createdAt")},
//	    Include: []string{"author"},
//	})
//
// Requests are never retried and responses are never cached: every failure
// is returned to the caller as a *ClientError whose Type tells them apart.
package jsonapikit
