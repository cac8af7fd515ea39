package jsonapikit

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// QueryTimeLayout renders time values in filters: UTC with milliseconds.
const QueryTimeLayout = "2006-01-02T15:04:05.000Z"

// QueryParam is a single name/value query parameter.
type QueryParam struct {
	Name  string
	Value string
}

// QueryParams is an ordered list of query parameters. Unlike url.Values it
// keeps the order parameters were added in.
type QueryParams []QueryParam

// Add appends a parameter.
func (q *QueryParams) Add(name, value string) {
	*q = append(*q, QueryParam{Name: name, Value: value})
}

// Get returns the value of the first parameter named name.
func (q QueryParams) Get(name string) (string, bool) {
	for _, p := range q {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Encode renders the parameters in order as a URL query string.
func (q QueryParams) Encode() string {
	if len(q) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Values converts to url.Values, losing order between distinct names.
func (q QueryParams) Values() url.Values {
	v := make(url.Values, len(q))
	for _, p := range q {
		v.Add(p.Name, p.Value)
	}
	return v
}

// QueryValuer customizes how a value renders in a query parameter.
type QueryValuer interface {
	QueryValue() string
}

// FormatQueryValue renders v the way filters send it. Times are UTC with
// millisecond precision, string kinds render their raw value and slices are
// joined with commas in order.
func FormatQueryValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case QueryValuer:
		return val.QueryValue()
	case time.Time:
		return val.UTC().Format(QueryTimeLayout)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.UTC().Format(QueryTimeLayout)
	case string:
		return val
	case []string:
		return strings.Join(val, ",")
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []byte:
		return string(val)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatQueryValue(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprint(v)
}

// FilterStyle selects how filter keys appear on the wire.
type FilterStyle int

const (
	// FilterStyleJSONAPI wraps keys as filter[<key>].
	FilterStyleJSONAPI FilterStyle = iota
	// FilterStylePlain sends keys as they are, for plain REST lists.
	FilterStylePlain
)

func (s FilterStyle) wrap(key string) string {
	if s == FilterStylePlain {
		return key
	}
	return "filter[" + key + "]"
}

// FilterField is one named value of a filter case.
type FilterField struct {
	Name  string
	Value any
}

// Field builds a FilterField.
func Field(name string, value any) FilterField {
	return FilterField{Name: name, Value: value}
}

// FilterCase is one filter token: a case name and its ordered fields. A case
// with a single field is keyed by the case name; a case with several fields
// emits one parameter per field keyed by case name plus capitalized field name.
type FilterCase struct {
	Name   string
	Fields []FilterField
}

// Filter builds a single-valued filter case.
func Filter(name string, value any) FilterCase {
	return FilterCase{Name: name, Fields: []FilterField{{Value: value}}}
}

// FilterGroup builds a filter case with several named fields.
func FilterGroup(name string, fields ...FilterField) FilterCase {
	return FilterCase{Name: name, Fields: fields}
}

func (f FilterCase) Case() FilterCase { return f }

// FilterItem is implemented by typed filter tokens.
type FilterItem interface {
	Case() FilterCase
}

// FilterKeyOverrider maps derived filter keys (case name, or case name joined
// with field name) to the wire key the server expects.
type FilterKeyOverrider interface {
	FilterKeys() map[string]string
}

// FilterKeyValue is a resolved filter key with its raw value.
type FilterKeyValue struct {
	Key   string
	Value any
}

// KeyValues expands item into its wire keys, in field order.
func KeyValues(item FilterItem) []FilterKeyValue {
	c := item.Case()
	if len(c.Fields) == 0 {
		return nil
	}

	var overrides map[string]string
	if o, ok := item.(FilterKeyOverrider); ok {
		overrides = o.FilterKeys()
	}
	key := func(derived string) string {
		if k, ok := overrides[derived]; ok && k != "" {
			return k
		}
		return derived
	}

	if len(c.Fields) == 1 {
		return []FilterKeyValue{{Key: key(c.Name), Value: c.Fields[0].Value}}
	}

	out := make([]FilterKeyValue, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			continue
		}
		out = append(out, FilterKeyValue{Key: key(joinKey(c.Name, f.Name)), Value: f.Value})
	}
	return out
}

func joinKey(caseName, fieldName string) string {
	if fieldName == "" {
		return caseName
	}
	first, size := utf8.DecodeRuneInString(fieldName)
	return caseName + string(unicode.ToUpper(first)) + fieldName[size:]
}

// FilterParams renders filter items as query parameters in order.
func FilterParams[F FilterItem](style FilterStyle, items ...F) QueryParams {
	var params QueryParams
	for _, item := range items {
		for _, kv := range KeyValues(item) {
			params.Add(style.wrap(kv.Key), FormatQueryValue(kv.Value))
		}
	}
	return params
}

// FilterJSON renders filter items as a JSON-ready object keyed by the plain
// wire keys. Later items win on key collisions.
func FilterJSON[F FilterItem](items ...F) map[string]any {
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]any)
	for _, item := range items {
		for _, kv := range KeyValues(item) {
			out[kv.Key] = jsonFilterValue(kv.Value)
		}
	}
	return out
}

func jsonFilterValue(v any) any {
	switch val := v.(type) {
	case QueryValuer:
		return val.QueryValue()
	case time.Time:
		return val.UTC().Format(QueryTimeLayout)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(QueryTimeLayout)
	}
	return v
}

// Desc negates a sort token for descending order.
func Desc[S ~string](s S) S {
	return "-" + s
}

// SortParams renders a sort parameter, or nothing for no tokens.
func SortParams[S ~string](items ...S) QueryParams {
	return joinedParam("sort", items)
}

// IncludeParams renders an include parameter, or nothing for no tokens.
func IncludeParams[I ~string](items ...I) QueryParams {
	return joinedParam("include", items)
}

func joinedParam[S ~string](name string, items []S) QueryParams {
	if len(items) == 0 {
		return nil
	}
	parts := make([]string, len(items))
	for i, s := range items {
		parts[i] = string(s)
	}
	return QueryParams{{Name: name, Value: strings.Join(parts, ",")}}
}
