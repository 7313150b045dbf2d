package converters

// Package converters provides retrofit.Decoder implementations for common
// response formats.

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/retrofit-go/pkg/retrofit"
)

// Supported converter names, as used in configuration.
const (
	NameJSON = "json"
	NameXML  = "xml"
	NameYAML = "yaml"
	NameHTML = "html"
)

// JSON decodes the body with encoding/json. It is the default converter.
type JSON[T any] struct{}

func (JSON[T]) Decode(body []byte) (T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode json: %w", err)
	}
	return out, nil
}

type XML[T any] struct{}

func (XML[T]) Decode(body []byte) (T, error) {
	var out T
	if err := xml.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode xml: %w", err)
	}
	return out, nil
}

type YAML[T any] struct{}

func (YAML[T]) Decode(body []byte) (T, error) {
	var out T
	if err := yaml.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode yaml: %w", err)
	}
	return out, nil
}

// HTML parses the body into a goquery document for selector-based access.
type HTML struct{}

func (HTML) Decode(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Dynamic returns a converter producing untyped values (maps, slices,
// scalars) for the named format. HTML yields the document text.
func Dynamic(name string) (retrofit.Decoder[any], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameJSON:
		return retrofit.DecoderFunc[any](JSON[any]{}.Decode), nil
	case NameYAML:
		return retrofit.DecoderFunc[any](YAML[any]{}.Decode), nil
	case NameXML:
		return retrofit.DecoderFunc[any](decodeXMLTree), nil
	case NameHTML:
		return retrofit.DecoderFunc[any](func(body []byte) (any, error) {
			doc, err := HTML{}.Decode(body)
			if err != nil {
				return nil, err
			}
			return strings.TrimSpace(doc.Text()), nil
		}), nil
	default:
		return nil, fmt.Errorf("unsupported converter %q", name)
	}
}

// xmlNode is a generic element tree used when no target type is known.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

func decodeXMLTree(body []byte) (any, error) {
	var root xmlNode
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	return map[string]any{root.XMLName.Local: root.toValue()}, nil
}

func (n xmlNode) toValue() any {
	if len(n.Children) == 0 && len(n.Attrs) == 0 {
		return strings.TrimSpace(n.Content)
	}
	out := make(map[string]any, len(n.Children)+len(n.Attrs))
	for _, a := range n.Attrs {
		out["@"+a.Name.Local] = a.Value
	}
	for _, c := range n.Children {
		key := c.XMLName.Local
		val := c.toValue()
		if existing, ok := out[key]; ok {
			if list, ok := existing.([]any); ok {
				out[key] = append(list, val)
			} else {
				out[key] = []any{existing, val}
			}
			continue
		}
		out[key] = val
	}
	return out
}
