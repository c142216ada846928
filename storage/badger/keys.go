package badger

import (
	"encoding/binary"
)

// Key prefixes for index snapshot data
const (
	chunkPrefix      = "idxchk"
	generationKeyStr = "idxgen"
)

var generationKey = []byte(generationKeyStr)

// makeGenerationPrefix generates the prefix shared by every chunk of one
// snapshot generation.
// Format: prefix:generation
func makeGenerationPrefix(generation uint64) []byte {
	prefix := chunkPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], generation)
	return buf
}

// makeChunkKey generates a key for the seq-th chunk of a generation.
// Format: prefix:generation:seq
func makeChunkKey(generation uint64, seq uint32) []byte {
	prefix := makeGenerationPrefix(generation)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	// Write in BigEndian order so iteration returns chunks in save order
	binary.BigEndian.PutUint32(buf[offset:], seq)
	return buf
}

func encodeGeneration(generation uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, generation)
	return buf
}

func decodeGeneration(val []byte) uint64 {
	if len(val) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(val)
}
