package kind

import (
	"fmt"
	"strings"
)

// Kind is a record kind. The zero value is Unknown.
type Kind uint8

const (
	Unknown Kind = iota
	Alloc
	Reference
	Region
	User
	Group
	Computer
	OrgUnit
	Domain
	Policy
	Container

	numKinds
)

// StyleKind is a renderer-agnostic style category.
type StyleKind string

// Style categories.
const (
	StyleMemory     StyleKind = "memory"
	StyleLink       StyleKind = "link"
	StyleIdentity   StyleKind = "identity"
	StyleCollection StyleKind = "collection"
	StyleContainer  StyleKind = "container"
	StylePolicy     StyleKind = "policy"
	StyleUnknown    StyleKind = "unknown"
)

// Styles lists every style category.
var Styles = []StyleKind{
	StyleMemory, StyleLink, StyleIdentity, StyleCollection,
	StyleContainer, StylePolicy, StyleUnknown,
}

var kindInfo = [numKinds]struct {
	name  string
	style StyleKind
}{
	Unknown:   {"unknown", StyleUnknown},
	Alloc:     {"alloc", StyleMemory},
	Reference: {"reference", StyleLink},
	Region:    {"region", StyleMemory},
	User:      {"user", StyleIdentity},
	Group:     {"group", StyleCollection},
	Computer:  {"computer", StyleIdentity},
	OrgUnit:   {"ou", StyleContainer},
	Domain:    {"domain", StyleContainer},
	Policy:    {"policy", StylePolicy},
	Container: {"container", StyleContainer},
}

// aliases maps lower-cased raw kinds to a Kind. Canonical names are added
// in init.
var aliases = map[string]Kind{
	"allocation":           Alloc,
	"object":               Alloc,
	"ref":                  Reference,
	"pointer":              Reference,
	"edge":                 Reference,
	"segment":              Region,
	"mapping":              Region,
	"person":               User,
	"inetorgperson":        User,
	"organizationalperson": User,
	"gmsa":                 User,
	"organizationalunit":   OrgUnit,
	"domaindns":            Domain,
	"builtindomain":        Domain,
	"gpo":                  Policy,
	"grouppolicycontainer": Policy,
}

func init() {
	for k := Kind(0); k < numKinds; k++ {
		aliases[kindInfo[k].name] = k
	}
}

// Kinds returns every kind in enumeration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Classify maps a raw source kind to a Kind. Matching ignores case and
// surrounding space. Unrecognised and empty kinds are Unknown.
func Classify(raw string) Kind {
	if k, ok := aliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return k
	}
	return Unknown
}

// Parse returns the kind whose canonical name is s.
func Parse(s string) (Kind, error) {
	for k := Kind(0); k < numKinds; k++ {
		if kindInfo[k].name == s {
			return k, nil
		}
	}
	return Unknown, fmt.Errorf("unknown kind %q", s)
}

// Valid reports whether k is a member of the enumeration.
func (k Kind) Valid() bool { return k < numKinds }

// String returns the canonical name of k.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindInfo[k].name
}

// Style returns the style category of k.
func (k Kind) Style() StyleKind {
	if !k.Valid() {
		return StyleUnknown
	}
	return kindInfo[k].style
}

// Style returns the style category of k.
func Style(k Kind) StyleKind { return k.Style() }

// Tag returns the id prefix for a record of kind k whose raw kind was raw.
// Known kinds use their canonical name. Unknown kinds keep the raw kind so
// that two unrecognised kinds never share an id space.
func Tag(k Kind, raw string) string {
	if k != Unknown {
		return k.String()
	}
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return kindInfo[Unknown].name
	}
	return kindInfo[Unknown].name + "." + raw
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
