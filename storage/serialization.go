// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/newswire/core"
)

// chunkFormat is written first so older snapshots can be recognized.
const chunkFormat = 1

// MarshalChunk serializes an IndexedChunk to bytes.
func MarshalChunk(chunk *core.IndexedChunk) []byte {
	buf := make([]byte, chunkSize(chunk))
	n := varint.Int.Marshal(chunkFormat, buf)
	n += ord.String.Marshal(chunk.ID, buf[n:])
	n += ord.String.Marshal(chunk.Text, buf[n:])
	n += varint.Int.Marshal(len(chunk.Vector), buf[n:])
	for _, f := range chunk.Vector {
		n += raw.Float32.Marshal(f, buf[n:])
	}
	meta := &chunk.Meta
	n += varint.Uint64.Marshal(uint64(meta.ArticleID), buf[n:])
	n += ord.String.Marshal(meta.Title, buf[n:])
	n += ord.String.Marshal(meta.URL, buf[n:])
	n += ord.String.Marshal(meta.Keyword, buf[n:])
	n += varint.Int.Marshal(meta.Score, buf[n:])
	n += ord.String.Marshal(meta.Category, buf[n:])
	varint.Int.Marshal(meta.ChunkIndex, buf[n:])
	return buf
}

func chunkSize(chunk *core.IndexedChunk) int {
	size := varint.Int.Size(chunkFormat)
	size += ord.String.Size(chunk.ID)
	size += ord.String.Size(chunk.Text)
	size += varint.Int.Size(len(chunk.Vector))
	for _, f := range chunk.Vector {
		size += raw.Float32.Size(f)
	}
	meta := &chunk.Meta
	size += varint.Uint64.Size(uint64(meta.ArticleID))
	size += ord.String.Size(meta.Title)
	size += ord.String.Size(meta.URL)
	size += ord.String.Size(meta.Keyword)
	size += varint.Int.Size(meta.Score)
	size += ord.String.Size(meta.Category)
	size += varint.Int.Size(meta.ChunkIndex)
	return size
}

// UnmarshalChunk deserializes an IndexedChunk from bytes.
func UnmarshalChunk(data []byte) (*core.IndexedChunk, error) {
	r := &reader{data: data}

	format := r.int()
	if r.err == nil && format != chunkFormat {
		return nil, fmt.Errorf("%w: unknown chunk format %d", ErrSerializationFailed, format)
	}

	var chunk core.IndexedChunk
	chunk.ID = r.string()
	chunk.Text = r.string()
	if dim := r.int(); r.err == nil {
		if dim < 0 || dim*4 > len(r.data)-r.off {
			return nil, ErrTruncatedData
		}
		chunk.Vector = make([]float32, dim)
		for i := range chunk.Vector {
			chunk.Vector[i] = r.float32()
		}
	}
	chunk.Meta.ArticleID = core.ID(r.uint64())
	chunk.Meta.Title = r.string()
	chunk.Meta.URL = r.string()
	chunk.Meta.Keyword = r.string()
	chunk.Meta.Score = r.int()
	chunk.Meta.Category = r.string()
	chunk.Meta.ChunkIndex = r.int()

	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
	}
	return &chunk, nil
}

// reader walks a buffer and remembers the first error.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) int() int {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(r.data[r.off:])
	r.off += n
	r.err = err
	return v
}

func (r *reader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.data[r.off:])
	r.off += n
	r.err = err
	return v
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.data[r.off:])
	r.off += n
	r.err = err
	return v
}

func (r *reader) float32() float32 {
	if r.err != nil {
		return 0
	}
	v, n, err := raw.Float32.Unmarshal(r.data[r.off:])
	r.off += n
	r.err = err
	return v
}
