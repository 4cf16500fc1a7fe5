package dump

import (
	"encoding/json"
	"time"
)

// Supported format versions.
const (
	Version1  = "1"
	Version10 = "1.0"
	Version11 = "1.1"
)

// SupportedVersions lists every version tag Decode accepts.
var SupportedVersions = []string{Version1, Version10, Version11}

// DefaultMaxBytes is the input ceiling applied by DecodeReader when the
// caller passes a non-positive limit.
const DefaultMaxBytes int64 = 256 << 20

// IDType records how a source id was spelled in the dump.
type IDType string

const (
	IDNone   IDType = ""       // id absent or null
	IDString IDType = "string" // JSON string
	IDNumber IDType = "number" // JSON number, kept in literal form
)

// Envelope is a decoded dump. It is never modified after Decode returns.
type Envelope struct {
	Version     string
	GeneratedAt time.Time // zero when the dump omits it
	Records     []RawRecord

	// Extra holds unrecognised top-level fields.
	Extra map[string]json.RawMessage
}

// Len returns the number of records.
func (e *Envelope) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Records)
}

// RawRecord is one record of the dump.
type RawRecord struct {
	Index      int    // position in the record sequence
	ID         string // source id, empty when absent
	IDType     IDType
	Kind       string         // raw source kind, empty when absent
	Attributes map[string]any // numbers are json.Number
	RelatesTo  []Reference

	// Extra holds unrecognised record fields.
	Extra map[string]json.RawMessage
}

// Reference points from a record to another record by source id.
type Reference struct {
	ID string

	// Kind pins the target's raw kind. Empty for bare references.
	Kind string

	// Rel names the relation. Empty means the default relation.
	Rel string

	Attributes map[string]any
}

// Qualified reports whether the reference names its target kind.
func (r Reference) Qualified() bool { return r.Kind != "" }
