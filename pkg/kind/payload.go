package kind

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Payload is the structured data extracted for one kind. The set of
// implementations is closed.
type Payload interface {
	isPayload()
}

// AllocPayload describes a heap allocation.
type AllocPayload struct {
	Size int64  `json:"size,omitempty"`
	Type string `json:"type,omitempty"`
}

// RegionPayload describes a contiguous memory region.
type RegionPayload struct {
	Base uint64 `json:"base,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// ReferencePayload describes a reference record.
type ReferencePayload struct {
	Strong bool `json:"strong"`
}

// PrincipalPayload describes a security principal (user, group, computer).
type PrincipalPayload struct {
	SID         string `json:"sid,omitempty"`
	AccountName string `json:"accountName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// ContainerPayload describes a directory container (OU, domain, container).
type ContainerPayload struct {
	DistinguishedName string `json:"distinguishedName,omitempty"`
}

// PolicyPayload describes a group policy object.
type PolicyPayload struct {
	GUID string `json:"guid,omitempty"`
}

// OpaquePayload is the payload of Unknown records.
type OpaquePayload struct {
	RawKind string `json:"rawKind,omitempty"`
}

func (AllocPayload) isPayload()     {}
func (RegionPayload) isPayload()    {}
func (ReferencePayload) isPayload() {}
func (PrincipalPayload) isPayload() {}
func (ContainerPayload) isPayload() {}
func (PolicyPayload) isPayload()    {}
func (OpaquePayload) isPayload()    {}

// PayloadFor extracts the payload for a record of kind k. Missing or
// mistyped attributes leave the corresponding field at its zero value;
// PayloadFor never fails.
func PayloadFor(k Kind, raw string, attrs map[string]any) Payload {
	switch k {
	case Alloc:
		return AllocPayload{
			Size: attrInt(attrs, "size", "bytes"),
			Type: attrString(attrs, "type", "typeName"),
		}
	case Region:
		return RegionPayload{
			Base: attrAddress(attrs, "base", "address", "start"),
			Size: attrInt(attrs, "size", "length"),
		}
	case Reference:
		strong := true
		if v, ok := attrs["weak"].(bool); ok {
			strong = !v
		}
		if v, ok := attrs["strong"].(bool); ok {
			strong = v
		}
		return ReferencePayload{Strong: strong}
	case User, Group, Computer:
		return PrincipalPayload{
			SID:         attrString(attrs, "objectSid", "sid"),
			AccountName: attrString(attrs, "sAMAccountName", "accountName"),
			DisplayName: attrString(attrs, "displayName", "name"),
		}
	case OrgUnit, Domain, Container:
		return ContainerPayload{
			DistinguishedName: attrString(attrs, "distinguishedName", "dn"),
		}
	case Policy:
		return PolicyPayload{
			GUID: attrString(attrs, "guid", "objectGUID", "cn"),
		}
	}
	return OpaquePayload{RawKind: raw}
}

// attrString returns the first non-empty string value among keys.
func attrString(attrs map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := attrs[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// attrInt returns the first integral value among keys.
func attrInt(attrs map[string]any, keys ...string) int64 {
	for _, key := range keys {
		switch v := attrs[key].(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n
			}
		case float64:
			if v == math.Trunc(v) && math.Abs(v) < math.MaxInt64 {
				return int64(v)
			}
		case int64:
			return v
		case int:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(v, 0, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

// attrAddress returns the first address among keys. Addresses are numbers
// or strings in any base strconv understands ("0x7f00", "140737").
func attrAddress(attrs map[string]any, keys ...string) uint64 {
	for _, key := range keys {
		switch v := attrs[key].(type) {
		case json.Number:
			if n, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
				return n
			}
		case float64:
			if v >= 0 && v == math.Trunc(v) {
				return uint64(v)
			}
		case string:
			if n, err := strconv.ParseUint(strings.TrimSpace(v), 0, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

// Field is one payload value formatted for display.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Describe lists the set fields of p in a fixed order. Zero values are
// left out, except a reference's strength. A nil payload has no fields.
func Describe(p Payload) []Field {
	var fs fields
	switch p := p.(type) {
	case AllocPayload:
		fs.int("size", p.Size)
		fs.str("type", p.Type)
	case RegionPayload:
		if p.Base != 0 {
			fs.str("base", "0x"+strconv.FormatUint(p.Base, 16))
		}
		fs.int("size", p.Size)
	case ReferencePayload:
		if p.Strong {
			fs.str("strength", "strong")
		} else {
			fs.str("strength", "weak")
		}
	case PrincipalPayload:
		fs.str("sid", p.SID)
		fs.str("account", p.AccountName)
		fs.str("display name", p.DisplayName)
	case ContainerPayload:
		fs.str("dn", p.DistinguishedName)
	case PolicyPayload:
		fs.str("guid", p.GUID)
	case OpaquePayload:
		fs.str("raw kind", p.RawKind)
	}
	return fs
}

type fields []Field

func (fs *fields) str(name, v string) {
	if v != "" {
		*fs = append(*fs, Field{Name: name, Value: v})
	}
}

func (fs *fields) int(name string, v int64) {
	if v != 0 {
		*fs = append(*fs, Field{Name: name, Value: strconv.FormatInt(v, 10)})
	}
}
