package main

import (
	"encoding/json"
	"io"

	"github.com/oueway/jsonapikit"
)

// renderDocument turns a resolved document into plain JSON values. Resolved
// relationships are inlined in place of their linkage.
func renderDocument(resp jsonapikit.Response[jsonapikit.GenericResource], single bool) map[string]any {
	out := map[string]any{}

	data := make([]map[string]any, len(resp.Data))
	for i, res := range resp.Data {
		data[i] = renderResource(res)
	}
	if single && len(data) == 1 {
		out["data"] = data[0]
	} else {
		out["data"] = data
	}

	if resp.Links != nil {
		out["links"] = resp.Links
	}
	if resp.Meta != nil {
		out["meta"] = resp.Meta
	}
	return out
}

func renderResource(g jsonapikit.GenericResource) map[string]any {
	out := map[string]any{"type": g.Type, "id": g.ID}
	if len(g.Attributes) > 0 {
		out["attributes"] = g.Attributes
	}
	if len(g.Relationships) == 0 {
		return out
	}

	rels := make(map[string]any, len(g.Relationships))
	for name, rel := range g.Relationships {
		if !rel.IsResolved() {
			rels[name] = map[string]any{"data": rel.Data}
			continue
		}
		items := make([]map[string]any, len(rel.Resolved))
		for i, r := range rel.Resolved {
			items[i] = renderResource(r)
		}
		if len(rel.Data) == 1 {
			rels[name] = items[0]
		} else {
			rels[name] = items
		}
	}
	out["relationships"] = rels
	return out
}

func (a *app) print(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if !a.v.GetBool("compact") {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
