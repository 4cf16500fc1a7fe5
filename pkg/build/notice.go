package build

import "fmt"

// NoticeCode classifies a builder notice.
type NoticeCode string

// Notice codes.
const (
	NoticeMissingID           NoticeCode = "MISSING_ID"
	NoticeDuplicateID         NoticeCode = "DUPLICATE_ID"
	NoticeUnresolvedReference NoticeCode = "UNRESOLVED_REFERENCE"
	NoticeAmbiguousReference  NoticeCode = "AMBIGUOUS_REFERENCE"
	NoticeDuplicateEdge       NoticeCode = "DUPLICATE_EDGE"
)

// Notice is a non-fatal anomaly found while building. A notice never
// prevents the graph from being produced.
type Notice struct {
	Code     NoticeCode
	Record   int    // index of the record the notice is about
	RecordID string // source id of that record, if any
	NodeID   string // canonical id involved, if any
	EdgeID   string // canonical edge id involved, if any

	// Target is the referenced source id for reference notices.
	Target string

	// Winner is the index of the record that kept the canonical id, for
	// DUPLICATE_ID notices.
	Winner int

	Message string
}

// String implements fmt.Stringer.
func (n Notice) String() string {
	return fmt.Sprintf("%s: %s", n.Code, n.Message)
}
