// Package kind defines the closed set of record kinds a dump may contain.
//
// Every record is classified into exactly one [Kind]. The set is closed:
// raw kinds the table does not know map to [Unknown] instead of failing,
// so a dump from a newer tool still loads.
//
// Each kind carries a structured [Payload] extracted from the record's
// attributes and a renderer [StyleKind]. Both mappings are exhaustive over
// the enumeration: the per-kind table is sized by the number of kinds, so
// adding a kind without a table entry does not compile.
//
// Classification is case-insensitive and understands the directory object
// classes emitted by the dumper (person, organizationalUnit,
// groupPolicyContainer, domainDNS) alongside the allocation kinds:
//
//	kind.Classify("alloc")              // kind.Alloc
//	kind.Classify("organizationalUnit") // kind.OrgUnit
//	kind.Classify("frobnicator")        // kind.Unknown
package kind
