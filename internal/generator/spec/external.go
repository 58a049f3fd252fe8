package spec

import (
	"sort"
	"strconv"
	"strings"
)

// ExternalRefExtension is the extension key left behind where an external
// reference was stripped. The openapi3 loader carries it through as a vendor
// extension, so downstream stages can tell a stripped reference apart from an
// empty schema.
const ExternalRefExtension = "x-clientgen-external"

// ExternalRefMarker returns the stripped external reference recorded in an
// extensions map, or "".
func ExternalRefMarker(extensions map[string]interface{}) string {
	ref, _ := extensions[ExternalRefExtension].(string)
	return ref
}

// stripExternalRefs deep-copies the raw tree, replacing every object whose
// $ref targets another file or URL with a marker object. Returns the copy
// and the stripped references in pointer order.
func stripExternalRefs(node interface{}) (interface{}, []External) {
	var externals []External
	out := stripNode(node, "", &externals)
	sort.Slice(externals, func(i, j int) bool { return externals[i].Pointer < externals[j].Pointer })
	return out, externals
}

func stripNode(node interface{}, pointer string, externals *[]External) interface{} {
	switch current := node.(type) {
	case map[string]interface{}:
		if ref, ok := current["$ref"].(string); ok && ref != "" && !strings.HasPrefix(ref, "#") {
			*externals = append(*externals, External{Pointer: pointer, Ref: ref})
			return map[string]interface{}{ExternalRefExtension: ref}
		}
		out := make(map[string]interface{}, len(current))
		for key, value := range current {
			out[key] = stripNode(value, Join(pointer, key), externals)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(current))
		for i, value := range current {
			out[i] = stripNode(value, pointer+"/"+strconv.Itoa(i), externals)
		}
		return out
	default:
		return node
	}
}
