package jsonapikit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"
)

// Links is the top-level links object of a document.
type Links struct {
	Self    string `json:"self,omitempty"`
	Related string `json:"related,omitempty"`
	First   string `json:"first,omitempty"`
	Last    string `json:"last,omitempty"`
	Next    string `json:"next,omitempty"`
	Prev    string `json:"prev,omitempty"`
}

// Meta is the top-level meta object of a document.
type Meta struct {
	TotalResourceCount int `json:"totalResourceCount"`
}

// Response is a decoded JSON:API document with primary data of type T.
// Data is always a list, whatever the cardinality on the wire.
type Response[T any] struct {
	Data     OneOrMany[T]  `json:"data"`
	Included []AnyResource `json:"included,omitempty"`
	Links    *Links        `json:"links,omitempty"`
	Meta     *Meta         `json:"meta,omitempty"`

	resolved bool
}

type rawResponse[T any] struct {
	Data     OneOrMany[T]      `json:"data"`
	Included []json.RawMessage `json:"included,omitempty"`
	Links    *Links            `json:"links,omitempty"`
	Meta     *Meta             `json:"meta,omitempty"`
}

// documentDecoder is implemented by documents that need a registry to decode.
type documentDecoder interface {
	decodeDocument(data []byte, reg *Registry) error
}

// documentResolver is implemented by documents whose relationships can be
// resolved after decoding.
type documentResolver interface {
	resolveDocument(maxDepth int)
}

var errMissingData = errors.New("jsonapikit: document has no data member")

// UnmarshalJSON decodes included resources through DefaultRegistry.
func (r *Response[T]) UnmarshalJSON(data []byte) error {
	return r.decodeDocument(data, defaultRegistry)
}

func (r *Response[T]) decodeDocument(data []byte, reg *Registry) error {
	if !gjson.GetBytes(data, "data").Exists() {
		return errMissingData
	}

	var raw rawResponse[T]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var included []AnyResource
	if len(raw.Included) > 0 {
		included = make([]AnyResource, 0, len(raw.Included))
		for i, item := range raw.Included {
			res, err := reg.Decode(item)
			if err != nil {
				return fmt.Errorf("included[%d]: %w", i, err)
			}
			included = append(included, res)
		}
	}

	*r = Response[T]{
		Data:     raw.Data,
		Included: included,
		Links:    raw.Links,
		Meta:     raw.Meta,
	}
	return nil
}

// DecodeResponse decodes body using reg for included resources. A nil reg
// means DefaultRegistry.
func DecodeResponse[T any](body []byte, reg *Registry) (Response[T], error) {
	if reg == nil {
		reg = defaultRegistry
	}
	var resp Response[T]
	err := resp.decodeDocument(body, reg)
	return resp, err
}

// Resolved returns a copy with every primary resource's relationship graph
// substituted from Included, using DefaultMaxResolveDepth. Included is
// cleared in the result.
func (r Response[T]) Resolved() Response[T] {
	return r.ResolvedWithDepth(DefaultMaxResolveDepth)
}

// ResolvedWithDepth is Resolved with an explicit depth bound.
func (r Response[T]) ResolvedWithDepth(maxDepth int) Response[T] {
	res := NewResolver(r.Included, maxDepth)

	data := make(OneOrMany[T], 0, len(r.Data))
	for _, d := range r.Data {
		if ar, ok := any(d).(AnyResource); ok {
			if v, ok := res.Resolve(ar).(T); ok {
				d = v
			}
		}
		data = append(data, d)
	}
	if r.Data == nil {
		data = nil
	}

	return Response[T]{
		Data:     data,
		Links:    r.Links,
		Meta:     r.Meta,
		resolved: true,
	}
}

func (r *Response[T]) resolveDocument(maxDepth int) {
	*r = r.ResolvedWithDepth(maxDepth)
}

// IsResolved reports whether the document came out of Resolved.
func (r Response[T]) IsResolved() bool {
	return r.resolved
}

// Append merges the following page into r. Primary data and included
// resources are concatenated in order. Self, related, first and prev links
// come from r; last and next from page. Meta is taken from page.
func (r Response[T]) Append(page Response[T]) Response[T] {
	var data OneOrMany[T]
	if r.Data != nil || page.Data != nil {
		data = make(OneOrMany[T], 0, len(r.Data)+len(page.Data))
		data = append(data, r.Data...)
		data = append(data, page.Data...)
	}

	var included []AnyResource
	if r.Included != nil || page.Included != nil {
		included = make([]AnyResource, 0, len(r.Included)+len(page.Included))
		included = append(included, r.Included...)
		included = append(included, page.Included...)
	}

	var links *Links
	if r.Links != nil || page.Links != nil {
		links = &Links{}
		if r.Links != nil {
			links.Self = r.Links.Self
			links.Related = r.Links.Related
			links.First = r.Links.First
			links.Prev = r.Links.Prev
		}
		if page.Links != nil {
			links.Last = page.Links.Last
			links.Next = page.Links.Next
		}
	}

	return Response[T]{
		Data:     data,
		Included: included,
		Links:    links,
		Meta:     page.Meta,
		resolved: r.resolved,
	}
}

// NextPageURL returns the next link when it is an absolute URL with both a
// scheme and a host. Otherwise it returns ErrNoNextPage.
func (r Response[T]) NextPageURL() (*url.URL, error) {
	if r.Links == nil || r.Links.Next == "" {
		return nil, ErrNoNextPage
	}
	u, err := url.Parse(r.Links.Next)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrNoNextPage
	}
	return u, nil
}

// HasNextPage reports whether NextPageURL would succeed.
func (r Response[T]) HasNextPage() bool {
	_, err := r.NextPageURL()
	return err == nil
}

// TotalCount returns meta.totalResourceCount, or -1 when absent.
func (r Response[T]) TotalCount() int {
	if r.Meta == nil {
		return -1
	}
	return r.Meta.TotalResourceCount
}
