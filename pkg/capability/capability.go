// Package capability implements the bitset algebra used to describe which
// operations a storage back-end supports. A Capability is a single bit; a
// Cluster is a set of them. Storages advertise a Cluster built with Combine
// and the façade tests bits with Can before dispatching an operation.
package capability

// Capability is a single supported operation. Cluster values are unions of
// Capability bits; the two share a representation so Combine and Can accept
// either.
type Capability uint32

// Cluster is a set of capabilities.
type Cluster = Capability

const (
	Create Capability = 1 << iota
	Stream
	Range
	Download
	PublicLink
	Remove
	Exists
	Scan
	Analyze
	Copy
	Move
	MultipartUpload
)

// None is the empty cluster.
const None Cluster = 0

var names = map[Capability]string{
	Create:          "create",
	Stream:          "stream",
	Range:           "range",
	Download:        "download",
	PublicLink:      "public_link",
	Remove:          "remove",
	Exists:          "exists",
	Scan:            "scan",
	Analyze:         "analyze",
	Copy:            "copy",
	Move:            "move",
	MultipartUpload: "multipart_upload",
}

func (c Capability) String() string {
	if name, ok := names[c]; ok {
		return name
	}

	return "unknown"
}

// Combine returns the union of the given clusters.
func Combine(clusters ...Cluster) Cluster {
	combined := None
	for _, c := range clusters {
		combined |= c
	}

	return combined
}

// Exclude removes every bit of the given clusters from cluster.
func Exclude(cluster Cluster, remove ...Cluster) Cluster {
	for _, r := range remove {
		cluster &^= r
	}

	return cluster
}

// Can reports whether want is a subset of cluster.
func Can(cluster Cluster, want Cluster) bool {
	return cluster&want == want
}
