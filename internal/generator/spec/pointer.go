package spec

import "strings"

// JSON-pointer helpers (RFC 6901). Pointers are the generator's addressing
// scheme for every node in the document: "/components/schemas/Foo" or
// "/paths/~1devices/get/responses/200".

// EscapeToken escapes a single reference token.
func EscapeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// UnescapeToken reverses EscapeToken.
func UnescapeToken(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

// Join appends escaped tokens to a base pointer.
func Join(base string, tokens ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, token := range tokens {
		b.WriteByte('/')
		b.WriteString(EscapeToken(token))
	}
	return b.String()
}

// Tokens splits a pointer into unescaped reference tokens. A leading "#" and
// the leading slash are tolerated.
func Tokens(pointer string) []string {
	pointer = strings.TrimPrefix(pointer, "#")
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return nil
	}
	raw := strings.Split(pointer, "/")
	tokens := make([]string, len(raw))
	for i, t := range raw {
		tokens[i] = UnescapeToken(t)
	}
	return tokens
}

// ComponentName returns the component name for a pointer of the form
// "#/components/<section>/<name>", or "" when the pointer has another shape.
func ComponentName(pointer, section string) string {
	tokens := Tokens(pointer)
	if len(tokens) == 3 && tokens[0] == "components" && tokens[1] == section {
		return tokens[2]
	}
	return ""
}
