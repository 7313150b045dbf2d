package retrofit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
)

const contentTypeJSON = "application/json"

// ErrDuplicateField is returned when two body entries share a name.
var ErrDuplicateField = errors.New("duplicate body field")

// Payload is an encoded request body.
type Payload struct {
	Kind        Kind
	Data        []byte
	ContentType string
}

// EncodeBody builds the request body from the Body and Form params. The
// first such param decides the encoding; nil is returned when there is
// nothing to send.
func EncodeBody(params []Param) (*Payload, error) {
	collection := make([]Param, 0, len(params))
	for _, p := range params {
		if p.Kind == KindBody || p.Kind == KindForm {
			collection = append(collection, p)
		}
	}
	if len(collection) == 0 {
		return nil, nil
	}

	first := collection[0]
	fields, structured, err := flatten(first)
	if err != nil {
		return nil, err
	}

	if first.Kind == KindBody {
		return encodeJSON(first, fields, structured, collection[1:])
	}
	return encodeMultipart(first, fields, structured, collection[1:])
}

func flatten(p Param) ([]Field, bool, error) {
	enum, ok := p.Value.(FieldEnumerator)
	if !ok {
		return nil, false, nil
	}
	fields, err := enum.EnumerateFields()
	if err != nil {
		return nil, false, fmt.Errorf("flatten param %q: %w", p.Name, err)
	}
	return fields, true, nil
}

func encodeJSON(first Param, fields []Field, structured bool, rest []Param) (*Payload, error) {
	obj := newJSONObject()
	if structured {
		for _, f := range fields {
			if err := obj.add(f.Name, f.Value); err != nil {
				return nil, err
			}
		}
	} else if err := obj.add(first.Name, first.Value); err != nil {
		return nil, err
	}
	for _, p := range rest {
		if err := obj.add(p.Name, p.Value); err != nil {
			return nil, err
		}
	}
	return &Payload{Kind: KindBody, Data: obj.bytes(), ContentType: contentTypeJSON}, nil
}

// jsonObject writes members in insertion order.
type jsonObject struct {
	buf  bytes.Buffer
	seen map[string]struct{}
}

func newJSONObject() *jsonObject {
	o := &jsonObject{seen: make(map[string]struct{})}
	o.buf.WriteByte('{')
	return o
}

func (o *jsonObject) add(key string, value any) error {
	if _, dup := o.seen[key]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateField, key)
	}
	k, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("encode body key %q: %w", key, err)
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode body field %q: %w", key, err)
	}
	if len(o.seen) > 0 {
		o.buf.WriteByte(',')
	}
	o.buf.Write(k)
	o.buf.WriteByte(':')
	o.buf.Write(v)
	o.seen[key] = struct{}{}
	return nil
}

func (o *jsonObject) bytes() []byte {
	out := make([]byte, 0, o.buf.Len()+1)
	out = append(out, o.buf.Bytes()...)
	return append(out, '}')
}

func encodeMultipart(first Param, fields []Field, structured bool, rest []Param) (*Payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if structured {
		for _, f := range fields {
			if err := writeFormField(w, f.Name, f.Value); err != nil {
				return nil, err
			}
		}
	} else if err := writeFormField(w, first.Name, first.Value); err != nil {
		return nil, err
	}
	for _, p := range rest {
		if err := writeFormField(w, p.Name, p.Value); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}
	return &Payload{Kind: KindForm, Data: buf.Bytes(), ContentType: w.FormDataContentType()}, nil
}

func writeFormField(w *multipart.Writer, name string, value any) error {
	file, ok := asFieldFile(value)
	if !ok {
		if err := w.WriteField(name, valueString(value)); err != nil {
			return fmt.Errorf("write form field %q: %w", name, err)
		}
		return nil
	}

	data, err := os.ReadFile(file.FilePath)
	if err != nil {
		return fmt.Errorf("read form file %q: %w", name, err)
	}
	fileName := file.FileName
	if fileName == "" {
		fileName = filepath.Base(file.FilePath)
	}
	part, err := w.CreateFormFile(name, fileName)
	if err != nil {
		return fmt.Errorf("create form file %q: %w", name, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write form file %q: %w", name, err)
	}
	return nil
}
