package graph

import "strings"

// Separators used in canonical ids.
const (
	kindSep   = ":"
	edgeArrow = "->"
	edgeSep   = "#"
)

var (
	// Node id components never contain '>' or '#', so edge ids split
	// unambiguously. Kind tags additionally never contain ':'.
	idEscaper  = strings.NewReplacer("%", "%25", ">", "%3E", "#", "%23")
	tagEscaper = strings.NewReplacer("%", "%25", ">", "%3E", "#", "%23", ":", "%3A")
)

// NodeID returns the canonical id of a record with the given kind tag and
// source id.
func NodeID(tag, sourceID string) string {
	return tagEscaper.Replace(tag) + kindSep + idEscaper.Replace(sourceID)
}

// EdgeID returns the canonical id of an edge. source and target must be
// canonical node ids.
func EdgeID(source, target string, k EdgeKind) string {
	return source + edgeArrow + target + edgeSep + string(k)
}
