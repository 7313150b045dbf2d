package retrofit

import (
	"fmt"
	"strings"
)

// Kind is the role a call argument plays when the request is assembled.
type Kind int

const (
	KindPath Kind = iota
	KindQuery
	KindBody
	KindForm
	KindHeader
)

func (k Kind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindQuery:
		return "query"
	case KindBody:
		return "body"
	case KindForm:
		return "form"
	case KindHeader:
		return "header"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a textual role (as used in endpoint files) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "path":
		return KindPath, nil
	case "query":
		return KindQuery, nil
	case "body":
		return KindBody, nil
	case "form":
		return KindForm, nil
	case "header":
		return KindHeader, nil
	default:
		return 0, fmt.Errorf("unknown param kind %q", s)
	}
}

// Param is a single call argument tagged with its role.
type Param struct {
	Kind  Kind
	Name  string
	Value any
}

func Path(name string, value any) Param   { return Param{Kind: KindPath, Name: name, Value: value} }
func Query(name string, value any) Param  { return Param{Kind: KindQuery, Name: name, Value: value} }
func Body(name string, value any) Param   { return Param{Kind: KindBody, Name: name, Value: value} }
func Form(name string, value any) Param   { return Param{Kind: KindForm, Name: name, Value: value} }
func Header(name string, value any) Param { return Param{Kind: KindHeader, Name: name, Value: value} }

// Field is one named value produced by flattening a structured param value.
type Field struct {
	Name  string
	Value any
}

// FieldEnumerator is implemented by structured param values. The returned
// order is the order fields are written to the wire.
type FieldEnumerator interface {
	EnumerateFields() ([]Field, error)
}

// Fields is a ready-made FieldEnumerator for ad-hoc structured values.
type Fields []Field

func (f Fields) EnumerateFields() ([]Field, error) {
	out := make([]Field, len(f))
	copy(out, f)
	return out, nil
}

// FieldFile marks a form field whose content is read from disk.
type FieldFile struct {
	FilePath string
	FileName string
}

func asFieldFile(v any) (FieldFile, bool) {
	switch f := v.(type) {
	case FieldFile:
		return f, true
	case *FieldFile:
		if f == nil {
			return FieldFile{}, false
		}
		return *f, true
	default:
		return FieldFile{}, false
	}
}

func valueString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
