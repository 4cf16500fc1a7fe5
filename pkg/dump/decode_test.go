package dump

import (
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/volvulus/untwist/pkg/errors"
)

func TestDecode(t *testing.T) {
	input := `{
		"version": "1",
		"generatedAt": "2024-05-01T12:00:00Z",
		"tool": {"name": "twist"},
		"records": [
			{"id": "a", "kind": "alloc", "attributes": {"size": 64, "type": "Foo"}},
			{"id": 7, "kind": "user", "relatesTo": ["a", {"id": "g1", "kind": "group", "rel": "member"}], "sid": "S-1-5"}
		]
	}`

	env, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if env.Version != "1" {
		t.Errorf("Version = %q, want 1", env.Version)
	}
	if want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC); !env.GeneratedAt.Equal(want) {
		t.Errorf("GeneratedAt = %v, want %v", env.GeneratedAt, want)
	}
	if _, ok := env.Extra["tool"]; !ok {
		t.Error("unknown top-level field was dropped")
	}
	if env.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", env.Len())
	}

	a := env.Records[0]
	if a.Index != 0 || a.ID != "a" || a.IDType != IDString || a.Kind != "alloc" {
		t.Errorf("record 0 = %+v", a)
	}
	if size, ok := a.Attributes["size"].(json.Number); !ok || size.String() != "64" {
		t.Errorf("size = %#v, want json.Number(64)", a.Attributes["size"])
	}
	if a.Extra != nil {
		t.Errorf("record 0 Extra = %v, want nil", a.Extra)
	}

	u := env.Records[1]
	if u.ID != "7" || u.IDType != IDNumber {
		t.Errorf("numeric id = %q (%s), want 7 (number)", u.ID, u.IDType)
	}
	if len(u.RelatesTo) != 2 {
		t.Fatalf("RelatesTo len = %d, want 2", len(u.RelatesTo))
	}
	if r := u.RelatesTo[0]; r.ID != "a" || r.Qualified() {
		t.Errorf("bare reference = %+v", r)
	}
	if r := u.RelatesTo[1]; r.ID != "g1" || r.Kind != "group" || r.Rel != "member" || !r.Qualified() {
		t.Errorf("object reference = %+v", r)
	}
	if string(u.Extra["sid"]) != `"S-1-5"` {
		t.Errorf("record Extra[sid] = %s", u.Extra["sid"])
	}
}

func TestDecodeEmptyRecords(t *testing.T) {
	env, err := Decode([]byte(`{"version":"1.1","records":[]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Len() != 0 {
		t.Errorf("Len() = %d, want 0", env.Len())
	}
	if !env.GeneratedAt.IsZero() {
		t.Errorf("GeneratedAt = %v, want zero", env.GeneratedAt)
	}
}

func TestDecodeUnixTimestamp(t *testing.T) {
	env, err := Decode([]byte(`{"version":"1","generatedAt":1714564800,"records":[]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := env.GeneratedAt.Unix(); got != 1714564800 {
		t.Errorf("GeneratedAt.Unix() = %d", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMsg  string
		recordID string
	}{
		{"empty", "", "empty", ""},
		{"whitespace", "  \n ", "empty", ""},
		{"syntax", `{"version": "1", "records": [}`, "not valid JSON", ""},
		{"array", `[1,2]`, "JSON object", ""},
		{"string", `"dump"`, "JSON object", ""},
		{"missing version", `{"records": []}`, `missing "version"`, ""},
		{"numeric version", `{"version": 1, "records": []}`, "must be a string", ""},
		{"unknown version", `{"version": "9", "records": []}`, "unsupported dump version", ""},
		{"missing records", `{"version": "1"}`, `missing "records"`, ""},
		{"null records", `{"version": "1", "records": null}`, `missing "records"`, ""},
		{"records object", `{"version": "1", "records": {}}`, "must be an array", ""},
		{"record not object", `{"version": "1", "records": [1]}`, "records[0] must be an object", ""},
		{"bool id", `{"version": "1", "records": [{"id": true}]}`, "records[0].id", ""},
		{"kind not string", `{"version": "1", "records": [{"id": "x", "kind": 3}]}`, "kind must be a string", "x"},
		{"attributes array", `{"version": "1", "records": [{"id": "x", "attributes": []}]}`, "attributes must be an object", "x"},
		{"relatesTo string", `{"version": "1", "records": [{"id": "x", "relatesTo": "a"}]}`, "relatesTo must be an array", "x"},
		{"reference bool", `{"version": "1", "records": [{"id": "x", "relatesTo": [true]}]}`, "relatesTo [0]", "x"},
		{"reference without id", `{"version": "1", "records": [{"id": "x", "relatesTo": [{"kind": "user"}]}]}`, `requires a string or number "id"`, "x"},
		{"bad timestamp", `{"version": "1", "generatedAt": "yesterday", "records": []}`, "RFC 3339", ""},
		{"float timestamp", `{"version": "1", "generatedAt": 1.5, "records": []}`, "Unix seconds", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeDecode) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeDecode)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
			if got := errors.GetRecordID(err); got != tt.recordID {
				t.Errorf("record id = %q, want %q", got, tt.recordID)
			}
		})
	}
}

func TestDecodeNullFieldsAreAbsent(t *testing.T) {
	env, err := Decode([]byte(`{"version":"1","generatedAt":null,"records":[{"id":null,"kind":null,"attributes":null,"relatesTo":null}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	r := env.Records[0]
	if r.ID != "" || r.IDType != IDNone || r.Kind != "" || r.Attributes != nil || r.RelatesTo != nil {
		t.Errorf("record = %+v, want all fields empty", r)
	}
}

func TestDecodeEmptyReferenceIDs(t *testing.T) {
	env, err := Decode([]byte(`{"version":"1","records":[{"id":"x","relatesTo":["",{"id":"","kind":"user"}]}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	refs := env.Records[0].RelatesTo
	if len(refs) != 2 {
		t.Fatalf("refs = %+v, want 2", refs)
	}
	if refs[0].ID != "" || refs[1].ID != "" || refs[1].Kind != "user" {
		t.Errorf("refs = %+v", refs)
	}
}

func TestDecodeReader(t *testing.T) {
	input := `{"version":"1","records":[{"id":"a"}]}`

	env, err := DecodeReader(strings.NewReader(input), 0)
	if err != nil {
		t.Fatalf("DecodeReader: %v", err)
	}
	if env.Len() != 1 {
		t.Errorf("Len() = %d, want 1", env.Len())
	}

	_, err = DecodeReader(strings.NewReader(input), 10)
	if err == nil {
		t.Fatal("expected size error")
	}
	if !errors.Is(err, errors.ErrCodeDecode) {
		t.Errorf("code = %v, want DECODE_ERROR", errors.GetCode(err))
	}
	if !stderrors.Is(err, ErrTooLarge) {
		t.Error("size error should wrap ErrTooLarge")
	}

	if _, err := DecodeReader(strings.NewReader(input), int64(len(input))); err != nil {
		t.Errorf("input of exactly limit bytes should decode: %v", err)
	}
}

func TestIsSupportedVersion(t *testing.T) {
	for _, v := range SupportedVersions {
		if !IsSupportedVersion(v) {
			t.Errorf("IsSupportedVersion(%q) = false", v)
		}
	}
	for _, v := range []string{"", "2", "1.2", "v1"} {
		if IsSupportedVersion(v) {
			t.Errorf("IsSupportedVersion(%q) = true", v)
		}
	}
}
