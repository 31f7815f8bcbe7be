// Package walrus drives the decentralized blob store used for oversized
// entry payloads. Upload is a five-step saga (encode, register, write
// shards, certify, report) with every step independently failable;
// progress is checkpointed so a crashed upload resumes from the last
// completed step instead of restarting blindly. Download is a single
// read by blob id.
package walrus

import (
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// Shard is one erasure-coded slice of a blob, addressed to one storage
// node.
type Shard struct {
	Index  int
	Node   string
	Data   []byte
	Digest []byte
}

// EncodedBlob is the result of the local encoding step: the blob id, the
// Merkle root over shard digests, and the per-node shards. The blob id
// is content-derived (base64url of the root hash), which is why it
// doubles as a content-hash surrogate downstream.
type EncodedBlob struct {
	BlobID   string
	RootHash []byte
	Size     uint64
	Shards   []Shard
}

var errNoNodes = errors.New("walrus: no storage nodes configured")

// EncodeBlob splits raw across the given nodes and derives the blob
// identity. Pure local computation: no network risk yet, and the same
// input always encodes to the same blob id, which Resume relies on.
func EncodeBlob(raw []byte, nodes []string) (*EncodedBlob, error) {
	if len(nodes) == 0 {
		return nil, errNoNodes
	}
	if len(raw) == 0 {
		return nil, errors.New("walrus: refusing to encode empty blob")
	}

	shards := splitShards(raw, nodes)

	digests := make([][]byte, len(shards))
	for i := range shards {
		d := blake2b.Sum256(shards[i].Data)
		shards[i].Digest = d[:]
		digests[i] = d[:]
	}

	root := merkleRoot(digests)

	return &EncodedBlob{
		BlobID:   base64.RawURLEncoding.EncodeToString(root),
		RootHash: root,
		Size:     uint64(len(raw)),
		Shards:   shards,
	}, nil
}

// splitShards divides raw into len(nodes) contiguous slices. The final
// shard absorbs the remainder; nodes beyond the data length receive
// empty shards so node assignment stays stable.
func splitShards(raw []byte, nodes []string) []Shard {
	n := len(nodes)
	size := len(raw) / n
	if size == 0 {
		size = 1
	}

	shards := make([]Shard, 0, n)
	off := 0
	for i, node := range nodes {
		end := off + size
		if i == n-1 || end > len(raw) {
			end = len(raw)
		}
		shards = append(shards, Shard{Index: i, Node: node, Data: raw[off:end]})
		off = end
	}
	return shards
}

// merkleRoot folds shard digests pairwise with blake2b-256 until a single
// root remains. An odd digest at a level is promoted unchanged.
func merkleRoot(digests [][]byte) []byte {
	if len(digests) == 1 {
		return digests[0]
	}

	next := make([][]byte, 0, (len(digests)+1)/2)
	for i := 0; i < len(digests); i += 2 {
		if i+1 == len(digests) {
			next = append(next, digests[i])
			continue
		}
		combined := make([]byte, 0, len(digests[i])+len(digests[i+1]))
		combined = append(combined, digests[i]...)
		combined = append(combined, digests[i+1]...)
		d := blake2b.Sum256(combined)
		next = append(next, d[:])
	}
	return merkleRoot(next)
}
