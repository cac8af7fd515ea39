package jsonapikit

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize is the page[size] sent by List when none is given.
const DefaultPageSize = 15

// FilterMethod selects how List sends its filters.
type FilterMethod int

const (
	// FilterQuery sends everything as GET query parameters.
	FilterQuery FilterMethod = iota
	// FilterPostForm POSTs the parameters as an x-www-form-urlencoded body.
	FilterPostForm
	// FilterPostJSON POSTs the filters as a JSON object; other parameters stay in the URL.
	FilterPostJSON
)

// Endpoint is a resource collection at Path whose primary data decodes as T.
// F, S and I are the filter, sort and include token types.
type Endpoint[T any, F FilterItem, S ~string, I ~string] struct {
	Path string
	// Paginated appends the delegate's pagination index and size keys to List.
	Paginated    bool
	FilterMethod FilterMethod
	FilterStyle  FilterStyle
	// ContentType of Create and Update bodies; ContentTypeJSON when empty.
	ContentType ContentType
}

// NewEndpoint returns a paginated JSON:API endpoint at path.
func NewEndpoint[T any, F FilterItem, S ~string, I ~string](path string) Endpoint[T, F, S, I] {
	return Endpoint[T, F, S, I]{
		Path:        path,
		Paginated:   true,
		FilterStyle: FilterStyleJSONAPI,
	}
}

// ListOptions are the tokens and paging inputs of a List call.
type ListOptions[F FilterItem, S ~string, I ~string] struct {
	Filters  []F
	Sort     []S
	Include  []I
	PageSize int
	// PageIndex is the offset, cursor or page number, depending on the
	// delegate's PaginationParams. Empty means "0".
	PageIndex string
}

func (e Endpoint[T, F, S, I]) resourcePath(id string) (string, error) {
	if e.Path == "" {
		return "", &ClientError{Type: ErrorTypeLocal, Message: "resource path is not set"}
	}
	if id == "" {
		return e.Path, nil
	}
	return strings.TrimSuffix(e.Path, "/") + "/" + url.PathEscape(id), nil
}

// Get fetches one resource by id with its relationships resolved.
func (e Endpoint[T, F, S, I]) Get(ctx context.Context, c *Client, id string, include ...I) (Response[T], error) {
	path, err := e.resourcePath(id)
	if err != nil {
		return Response[T]{}, err
	}
	u, err := c.URLFromPath(path, IncludeParams(include...))
	if err != nil {
		return Response[T]{}, err
	}
	return e.fetchResolved(ctx, c, NewGetRequest(u))
}

// ListParams builds List's parameters in wire order: page[size], sort,
// filters, include, then the delegate's pagination keys.
func (e Endpoint[T, F, S, I]) ListParams(c *Client, opts ListOptions[F, S, I]) (QueryParams, QueryParams) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var head QueryParams
	if e.FilterStyle == FilterStyleJSONAPI {
		head.Add("page[size]", strconv.Itoa(pageSize))
	}
	head = append(head, SortParams(opts.Sort...)...)

	filters := FilterParams(e.FilterStyle, opts.Filters...)

	var tail QueryParams
	tail = append(tail, IncludeParams(opts.Include...)...)
	if e.Paginated && c != nil {
		if delegate := c.Delegate(); delegate != nil {
			if p := delegate.PaginationParams(); p != nil {
				index := opts.PageIndex
				if index == "" {
					index = "0"
				}
				tail.Add(p.IndexKey, index)
				tail.Add(p.SizeKey, strconv.Itoa(pageSize))
			}
		}
	}

	params := append(QueryParams{}, head...)
	params = append(params, filters...)
	params = append(params, tail...)
	return params, filters
}

// ListRequest prepares the List call without running it, for callers that
// decode into their own list type with Do.
func (e Endpoint[T, F, S, I]) ListRequest(c *Client, opts ListOptions[F, S, I]) (*Request, error) {
	path, err := e.resourcePath("")
	if err != nil {
		return nil, err
	}
	params, filters := e.ListParams(c, opts)

	switch e.FilterMethod {
	case FilterPostForm:
		u, err := c.URLFromPath(path, nil)
		if err != nil {
			return nil, err
		}
		return NewPostRequest(u, FormBody(params), ContentTypeFormURLEncoded), nil

	case FilterPostJSON:
		rest := make(QueryParams, 0, len(params)-len(filters))
		for _, p := range params {
			if !containsParam(filters, p) {
				rest = append(rest, p)
			}
		}
		u, err := c.URLFromPath(path, rest)
		if err != nil {
			return nil, err
		}
		body, err := JSONBody(FilterJSON(opts.Filters...))
		if err != nil {
			return nil, &ClientError{Type: ErrorTypeLocal, Message: "failed to encode filters", Cause: err}
		}
		return NewPostRequest(u, body, ContentTypeJSON), nil

	default:
		u, err := c.URLFromPath(path, params)
		if err != nil {
			return nil, err
		}
		return NewGetRequest(u), nil
	}
}

func containsParam(params QueryParams, p QueryParam) bool {
	for _, q := range params {
		if q == p {
			return true
		}
	}
	return false
}

// List fetches a page of the collection with relationships resolved.
func (e Endpoint[T, F, S, I]) List(ctx context.Context, c *Client, opts ListOptions[F, S, I]) (Response[T], error) {
	r, err := e.ListRequest(c, opts)
	if err != nil {
		return Response[T]{}, err
	}
	return e.fetchResolved(ctx, c, r)
}

// Create POSTs body to the collection.
func (e Endpoint[T, F, S, I]) Create(ctx context.Context, c *Client, body any) (Response[T], error) {
	return e.send(ctx, c, MethodPost, "", body)
}

// Update PUTs body to the resource with id.
func (e Endpoint[T, F, S, I]) Update(ctx context.Context, c *Client, id string, body any) (Response[T], error) {
	return e.send(ctx, c, MethodPut, id, body)
}

// Delete removes the resource with id. Any 2xx status is success.
func (e Endpoint[T, F, S, I]) Delete(ctx context.Context, c *Client, id string) (bool, error) {
	path, err := e.resourcePath(id)
	if err != nil {
		return false, err
	}
	u, err := c.URLFromPath(path, nil)
	if err != nil {
		return false, err
	}
	return DoBool(ctx, c, NewDeleteRequest(u))
}

func (e Endpoint[T, F, S, I]) send(ctx context.Context, c *Client, method Method, id string, body any) (Response[T], error) {
	path, err := e.resourcePath(id)
	if err != nil {
		return Response[T]{}, err
	}
	u, err := c.URLFromPath(path, nil)
	if err != nil {
		return Response[T]{}, err
	}
	data, err := JSONBody(body)
	if err != nil {
		return Response[T]{}, &ClientError{Type: ErrorTypeLocal, Message: "failed to encode request body", Cause: err}
	}

	ct := e.ContentType
	if ct == "" {
		ct = ContentTypeJSON
	}
	var r *Request
	if method == MethodPut {
		r = NewPutRequest(u, data, ct)
	} else {
		r = NewPostRequest(u, data, ct)
	}
	return e.fetchResolved(ctx, c, r)
}

func (e Endpoint[T, F, S, I]) fetchResolved(ctx context.Context, c *Client, r *Request) (Response[T], error) {
	resp, err := Do[Response[T]](ctx, c, r)
	if err != nil {
		return resp, err
	}
	return resp.ResolvedWithDepth(c.maxResolveDepth), nil
}
