// Package vecindex provides an exact nearest-neighbor index over dense
// vectors plus the process-wide snapshot store holding the index and its
// parallel document list.
package vecindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// Binary artifact layout: magic, version, dim, count, then count*dim
// little-endian float32 values.
const (
	indexMagic   = uint32(0x534C4958) // "SLIX"
	indexVersion = uint32(1)
)

// Index is a flat exact-kNN index under squared Euclidean distance.
// Entry i corresponds to line i of the sibling document list.
type Index struct {
	dim     int
	vectors [][]float32
}

// New returns an empty index for vectors of the given dimension.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid index dimension %d", dim)
	}
	return &Index{dim: dim}, nil
}

func (x *Index) Dim() int { return x.dim }
func (x *Index) Len() int { return len(x.vectors) }

// Add appends a vector. Position order is insertion order.
func (x *Index) Add(vec []float32) error {
	if len(vec) != x.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), x.dim)
	}
	stored := make([]float32, x.dim)
	copy(stored, vec)
	x.vectors = append(x.vectors, stored)
	return nil
}

// Hit is one search result: an entry position and its squared L2 distance.
type Hit struct {
	Position int
	Distance float32
}

// Search returns up to k entries ordered by increasing distance, ties
// broken by position order.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), x.dim)
	}
	if k <= 0 || len(x.vectors) == 0 {
		return nil, nil
	}

	hits := make([]Hit, len(x.vectors))
	for i, vec := range x.vectors {
		hits[i] = Hit{Position: i, Distance: squaredL2(query, vec)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Position < hits[j].Position
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// WriteTo serializes the index in the binary artifact layout.
func (x *Index) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	header := []uint32{indexMagic, indexVersion, uint32(x.dim), uint32(len(x.vectors))}
	for _, v := range header {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write index header failed: %w", err)
		}
	}
	buf := make([]byte, 4)
	for _, vec := range x.vectors {
		for _, f := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("write index vectors failed: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush index failed: %w", err)
	}
	return nil
}

// ReadFrom deserializes an index written by WriteTo.
func ReadFrom(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	var magic, version, dim, count uint32
	for _, dst := range []*uint32{&magic, &version, &dim, &count} {
		if err := binary.Read(br, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("read index header failed: %w", err)
		}
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("not an index file (bad magic %#x)", magic)
	}
	if version != indexVersion {
		return nil, fmt.Errorf("unsupported index file version %d", version)
	}

	idx, err := New(int(dim))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4)
	for i := uint32(0); i < count; i++ {
		vec := make([]float32, dim)
		for j := uint32(0); j < dim; j++ {
			if _, err := io.ReadFull(br, buf); err != nil {
				return nil, fmt.Errorf("read index vectors failed: %w", err)
			}
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf))
		}
		idx.vectors = append(idx.vectors, vec)
	}
	return idx, nil
}

// WriteFile writes the index artifact to path, truncating any prior file.
func (x *Index) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file failed: %w", err)
	}
	defer f.Close()
	return x.WriteTo(f)
}

// ReadFile loads an index artifact from path.
func ReadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFrom(f)
}
