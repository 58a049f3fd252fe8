package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pixie-sh/errors-go"
	"gopkg.in/yaml.v3"
)

// Load parses an OpenAPI document from a JSON or YAML byte buffer and
// resolves its internal references through the openapi3 loader.
//
// A syntax failure returns a parse error; a document whose top-level openapi
// field is absent or not 3.x returns a schema error. A missing paths section
// is legal and yields an empty paths map. External references are not
// followed: they are stripped before resolution, recorded on the Document,
// and marked in place so the normalizer can downgrade them to opaque types.
func Load(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("spec document is empty")
	}

	var raw interface{}
	if looksLikeJSON(data) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to parse spec as JSON")
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to parse spec as YAML")
		}
		raw = jsonify(raw)
	}

	root, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.New("document root is not an object")
	}

	version, _ := root["openapi"].(string)
	if version == "" {
		return nil, errors.New("document has no top-level openapi field")
	}
	if !strings.HasPrefix(version, "3.") {
		return nil, errors.New("unsupported OpenAPI version: %s (only 3.x is supported)", version)
	}
	info, _ := root["info"].(map[string]interface{})
	if title, _ := info["title"].(string); title == "" {
		return nil, errors.New("document has no info.title")
	}

	stripped, externals := stripExternalRefs(raw)

	buf, err := json.Marshal(stripped)
	if err != nil {
		return nil, errors.Wrap(err, "failed to re-encode spec for resolution")
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	t, err := loader.LoadFromData(buf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load spec")
	}

	return &Document{T: t, Externals: externals, root: raw}, nil
}

// looksLikeJSON sniffs the buffer: a document whose first non-space byte is
// '{' or '[' is treated as JSON, everything else as YAML.
func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// jsonify converts the YAML decoding into JSON-marshalable form: map keys
// become strings.
func jsonify(node interface{}) interface{} {
	switch current := node.(type) {
	case map[string]interface{}:
		for key, value := range current {
			current[key] = jsonify(value)
		}
		return current
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(current))
		for key, value := range current {
			out[fmt.Sprintf("%v", key)] = jsonify(value)
		}
		return out
	case []interface{}:
		for i, value := range current {
			current[i] = jsonify(value)
		}
		return current
	default:
		return node
	}
}
