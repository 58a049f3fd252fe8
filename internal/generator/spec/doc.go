// Package spec loads the OpenAPI document. The document model is
// github.com/getkin/kin-openapi/openapi3 — the same model the rest of the
// OpenAPI-generator ecosystem builds on — wrapped with JSON-pointer
// addressing over the raw node tree and bookkeeping for external references,
// which this single-document generator strips before load and downgrades to
// opaque types instead of following.
package spec

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// HTTP methods a path item may carry, in lexicographic order so iteration
// over them is stable.
var Methods = []string{"delete", "get", "head", "options", "patch", "post", "put", "trace"}

// External records one external reference removed from the document before
// resolution.
type External struct {
	Pointer string
	Ref     string
}

// Document is the loaded, reference-resolved OpenAPI document.
type Document struct {
	*openapi3.T

	// Externals lists the external references stripped before load, sorted
	// by pointer.
	Externals []External

	// root is the raw decoded document as authored, kept for JSON-pointer
	// addressing.
	root interface{}
}

// PathsMap returns the paths as a plain map, empty when the document has no
// paths section.
func (d *Document) PathsMap() map[string]*openapi3.PathItem {
	if d.T == nil || d.T.Paths == nil {
		return map[string]*openapi3.PathItem{}
	}
	return d.T.Paths.Map()
}

// OperationFor returns the operation for the given lowercase method name, or
// nil.
func OperationFor(item *openapi3.PathItem, method string) *openapi3.Operation {
	if item == nil {
		return nil
	}
	switch method {
	case "get":
		return item.Get
	case "put":
		return item.Put
	case "post":
		return item.Post
	case "delete":
		return item.Delete
	case "patch":
		return item.Patch
	case "head":
		return item.Head
	case "options":
		return item.Options
	case "trace":
		return item.Trace
	}
	return nil
}

// At walks the raw node tree by JSON pointer and returns the addressed node
// as authored, before external references were stripped. The boolean is
// false when any pointer segment does not exist.
func (d *Document) At(pointer string) (interface{}, bool) {
	node := d.root
	if pointer == "" || pointer == "#" {
		return node, true
	}
	for _, token := range Tokens(pointer) {
		switch current := node.(type) {
		case map[string]interface{}:
			child, ok := current[token]
			if !ok {
				return nil, false
			}
			node = child
		case []interface{}:
			idx, ok := arrayIndex(token, len(current))
			if !ok {
				return nil, false
			}
			node = current[idx]
		default:
			return nil, false
		}
	}
	return node, true
}

func arrayIndex(token string, length int) (int, bool) {
	if token == "" {
		return 0, false
	}
	idx := 0
	for _, r := range token {
		if r < '0' || r > '9' {
			return 0, false
		}
		idx = idx*10 + int(r-'0')
	}
	return idx, idx < length
}
