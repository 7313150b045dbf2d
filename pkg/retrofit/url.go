package retrofit

import "strings"

// ComposeURL resolves a templated path against the call parameters.
//
// Everything from the last '{' onward is dropped, then parameters are
// appended in declaration order: query params as name=value after a single
// '?', path params as raw values. A query param is followed by '&' whenever
// it is not the last parameter in the list, whatever kind comes next.
// Values are written as-is, without escaping.
func ComposeURL(base string, params []Param) string {
	if i := strings.LastIndex(base, "{"); i >= 0 {
		base = base[:i]
	}

	var sb strings.Builder
	sb.WriteString(base)
	for i, p := range params {
		switch p.Kind {
		case KindQuery:
			if !strings.Contains(sb.String(), "?") {
				sb.WriteByte('?')
			}
			sb.WriteString(p.Name)
			sb.WriteByte('=')
			sb.WriteString(valueString(p.Value))
			if i < len(params)-1 {
				sb.WriteByte('&')
			}
		case KindPath:
			sb.WriteString(valueString(p.Value))
		}
	}
	return sb.String()
}
