package converters

import (
	"testing"

	"github.com/samvad-hq/retrofit-go/pkg/retrofit"
)

type accessToken struct {
	Token     string `json:"access_token" xml:"access_token" yaml:"access_token"`
	ExpiresIn int    `json:"expires_in" xml:"expires_in" yaml:"expires_in"`
}

func TestTypedConverters(t *testing.T) {
	tests := []struct {
		name string
		dec  retrofit.Decoder[accessToken]
		body string
	}{
		{"json", JSON[accessToken]{}, `{"access_token":"abc","expires_in":7200}`},
		{"xml", XML[accessToken]{}, `<xml><access_token>abc</access_token><expires_in>7200</expires_in></xml>`},
		{"yaml", YAML[accessToken]{}, "access_token: abc\nexpires_in: 7200\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.dec.Decode([]byte(tt.body))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Token != "abc" || got.ExpiresIn != 7200 {
				t.Fatalf("decoded = %+v", got)
			}
		})
	}
}

func TestJSONDecodeError(t *testing.T) {
	if _, err := (JSON[accessToken]{}).Decode([]byte("{")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestHTMLConverter(t *testing.T) {
	doc, err := HTML{}.Decode([]byte(`<html><head><meta property="og:title" content="Hello"></head><body><h1>Hi</h1></body></html>`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, _ := doc.Find(`meta[property="og:title"]`).Attr("content"); v != "Hello" {
		t.Fatalf("og:title = %q", v)
	}
	if doc.Find("h1").Text() != "Hi" {
		t.Fatalf("h1 = %q", doc.Find("h1").Text())
	}
}

func TestDynamic(t *testing.T) {
	dec, err := Dynamic("json")
	if err != nil {
		t.Fatalf("Dynamic json: %v", err)
	}
	v, err := dec.Decode([]byte(`{"a":[1,2]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m, ok := v.(map[string]any); !ok || len(m["a"].([]any)) != 2 {
		t.Fatalf("value = %#v", v)
	}

	xmlDec, _ := Dynamic("xml")
	v, err = xmlDec.Decode([]byte(`<resp code="0"><item>a</item><item>b</item></resp>`))
	if err != nil {
		t.Fatalf("Decode xml: %v", err)
	}
	resp := v.(map[string]any)["resp"].(map[string]any)
	if resp["@code"] != "0" || len(resp["item"].([]any)) != 2 {
		t.Fatalf("xml tree = %#v", resp)
	}

	if _, err := Dynamic("protobuf"); err == nil {
		t.Fatalf("expected unsupported converter error")
	}
}
