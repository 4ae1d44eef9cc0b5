package scene

import (
	"crypto/sha256"
	"encoding/hex"
)

// NodeID is a content-addressed identifier for scene nodes. It is the hex
// sha256 of the node's construction path, so re-evaluating the same script
// yields the same IDs.
type NodeID string

// NewNodeID derives a NodeID from a construction path such as "mesh/body".
func NewNodeID(path string) NodeID {
	sum := sha256.Sum256([]byte(path))
	return NodeID(hex.EncodeToString(sum[:]))
}

func (id NodeID) String() string {
	return string(id)
}

// Short returns the first 8 hex digits, for messages.
func (id NodeID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// IsZero reports whether the ID is unset.
func (id NodeID) IsZero() bool {
	return id == ""
}
