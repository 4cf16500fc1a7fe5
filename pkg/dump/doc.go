// Package dump decodes Volvulus Twist dump files into a typed record set.
//
// # Overview
//
// A dump is a JSON envelope produced by the instrumentation tool. It carries
// a format version, an optional creation timestamp, and an ordered sequence
// of records:
//
//	{
//	  "version": "1",
//	  "generatedAt": "2024-05-01T12:00:00Z",
//	  "records": [
//	    {"id": "a", "kind": "alloc", "attributes": {"size": 64}},
//	    {"id": "b", "kind": "alloc", "relatesTo": ["a"]}
//	  ]
//	}
//
// [Decode] checks structural well-formedness only. It does not know what a
// node or an edge is; that is the job of pkg/build. Fields it does not
// recognise are kept verbatim in the Extra maps of [Envelope] and
// [RawRecord], so newer dumps survive a round trip through older viewers.
//
// # Errors
//
// Every failure is a *errors.Error with code DECODE_ERROR. When the failure
// can be attributed to one record the error carries that record's id (see
// errors.GetRecordID) and the message names its position in the sequence.
//
// # References
//
// A relatesTo entry is either a bare id or an object that pins the target
// kind and names the relation:
//
//	"relatesTo": ["a", {"id": "g1", "kind": "group", "rel": "member"}]
//
// Bare ids are resolved by the builder against every record in the dump,
// regardless of position.
package dump
