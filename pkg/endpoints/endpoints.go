package endpoints

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/samvad-hq/retrofit-go/pkg/registryfile"
	"github.com/samvad-hq/retrofit-go/pkg/retrofit"
)

// Package endpoints loads declared service contracts (YAML/JSON) and binds
// call arguments to them.

// FilePrefix marks a form field argument as a file path ("@./avatar.png").
const FilePrefix = "@"

// Endpoint is one declared remote method.
type Endpoint struct {
	Name      string     `json:"name" yaml:"name"`
	Method    string     `json:"method" yaml:"method"`
	Path      string     `json:"path" yaml:"path"`
	Converter string     `json:"converter" yaml:"converter"`
	Params    []ParamDef `json:"params" yaml:"params"`
}

// ParamDef declares one argument. Body and form params listing Fields are
// structured: each field is bound from its own argument and the group is
// flattened on the wire.
type ParamDef struct {
	Name     string   `json:"name" yaml:"name"`
	Kind     string   `json:"kind" yaml:"kind"`
	Required bool     `json:"required" yaml:"required"`
	Default  *string  `json:"default" yaml:"default"`
	Fields   []string `json:"fields" yaml:"fields"`
}

type registryFile struct {
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
}

// Registry holds the declared endpoints in file order.
type Registry struct {
	mu        sync.RWMutex
	endpoints []Endpoint
	idx       map[string]Endpoint
}

// LoadRegistry loads the endpoint registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	var file registryFile
	if err := registryfile.Load(path, "endpoints", &file); err != nil {
		return nil, err
	}
	return NewRegistry(file.Endpoints)
}

// NewRegistry validates and indexes endpoints.
func NewRegistry(eps []Endpoint) (*Registry, error) {
	if len(eps) == 0 {
		return nil, errors.New("endpoints file contains no endpoints entries")
	}

	reg := &Registry{
		endpoints: make([]Endpoint, len(eps)),
		idx:       make(map[string]Endpoint, len(eps)),
	}
	for i := range eps {
		ep := sanitizeEndpoint(eps[i])
		if err := validateEndpoint(ep); err != nil {
			return nil, fmt.Errorf("endpoints[%d]: %w", i, err)
		}
		if _, exists := reg.idx[ep.Name]; exists {
			return nil, fmt.Errorf("duplicate endpoint name %q", ep.Name)
		}
		reg.endpoints[i] = ep
		reg.idx[ep.Name] = ep
	}
	return reg, nil
}

func sanitizeEndpoint(ep Endpoint) Endpoint {
	ep.Name = strings.TrimSpace(ep.Name)
	ep.Method = strings.ToUpper(strings.TrimSpace(ep.Method))
	ep.Path = strings.TrimSpace(ep.Path)
	ep.Converter = strings.ToLower(strings.TrimSpace(ep.Converter))

	params := make([]ParamDef, len(ep.Params))
	for i, p := range ep.Params {
		p.Name = strings.TrimSpace(p.Name)
		p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
		params[i] = p
	}
	ep.Params = params
	return ep
}

func validateEndpoint(ep Endpoint) error {
	if ep.Name == "" {
		return errors.New("name is required")
	}
	if _, err := retrofit.ParseMethod(ep.Method); err != nil {
		return fmt.Errorf("endpoint %q: %w", ep.Name, err)
	}
	if ep.Path == "" {
		return fmt.Errorf("path is required for endpoint %q", ep.Name)
	}
	for i, p := range ep.Params {
		if p.Name == "" {
			return fmt.Errorf("endpoint %q params[%d]: name is required", ep.Name, i)
		}
		kind, err := retrofit.ParseKind(p.Kind)
		if err != nil {
			return fmt.Errorf("endpoint %q param %q: %w", ep.Name, p.Name, err)
		}
		if len(p.Fields) > 0 && kind != retrofit.KindBody && kind != retrofit.KindForm {
			return fmt.Errorf("endpoint %q param %q: fields are only allowed on body and form params", ep.Name, p.Name)
		}
	}
	return nil
}

// All returns all declared endpoints in file order.
func (r *Registry) All() []Endpoint {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// ByName returns the endpoint with the given name.
func (r *Registry) ByName(name string) (Endpoint, bool) {
	if r == nil {
		return Endpoint{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.idx[strings.TrimSpace(name)]
	return ep, ok
}

// Names returns the endpoint names sorted alphabetically.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, 0, len(all))
	for _, ep := range all {
		names = append(names, ep.Name)
	}
	sort.Strings(names)
	return names
}

// Bind turns textual arguments into a method descriptor on svc. Params are
// emitted in declaration order; optional params without an argument or
// default are left out.
func (ep Endpoint) Bind(svc *retrofit.Service, args map[string]string) (*retrofit.MethodBuilder, error) {
	if svc == nil {
		return nil, errors.New("bind requires a service")
	}
	method, err := retrofit.ParseMethod(ep.Method)
	if err != nil {
		return nil, err
	}

	params := make([]retrofit.Param, 0, len(ep.Params))
	for _, def := range ep.Params {
		kind, err := retrofit.ParseKind(def.Kind)
		if err != nil {
			return nil, err
		}

		if len(def.Fields) > 0 {
			fields, err := bindFields(ep.Name, def, kind, args)
			if err != nil {
				return nil, err
			}
			params = append(params, retrofit.Param{Kind: kind, Name: def.Name, Value: fields})
			continue
		}

		value, ok := lookup(def.Name, def, args)
		if !ok {
			if def.Required {
				return nil, fmt.Errorf("endpoint %q: missing required argument %q", ep.Name, def.Name)
			}
			continue
		}
		params = append(params, retrofit.Param{Kind: kind, Name: def.Name, Value: argValue(kind, value)})
	}

	return svc.Method(ep.Name, method, ep.Path, params...), nil
}

func bindFields(endpoint string, def ParamDef, kind retrofit.Kind, args map[string]string) (retrofit.Fields, error) {
	fields := make(retrofit.Fields, 0, len(def.Fields))
	for _, name := range def.Fields {
		value, ok := args[name]
		if !ok {
			if def.Required {
				return nil, fmt.Errorf("endpoint %q: missing required field %q of %q", endpoint, name, def.Name)
			}
			continue
		}
		fields = append(fields, retrofit.Field{Name: name, Value: argValue(kind, value)})
	}
	return fields, nil
}

func lookup(name string, def ParamDef, args map[string]string) (string, bool) {
	if v, ok := args[name]; ok {
		return v, true
	}
	if def.Default != nil {
		return *def.Default, true
	}
	return "", false
}

// argValue converts "@path" form arguments into file references.
func argValue(kind retrofit.Kind, value string) any {
	if kind == retrofit.KindForm && strings.HasPrefix(value, FilePrefix) && len(value) > len(FilePrefix) {
		return retrofit.FieldFile{FilePath: strings.TrimPrefix(value, FilePrefix)}
	}
	return value
}
