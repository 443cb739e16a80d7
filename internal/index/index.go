// Package index implements an in-memory inner-product vector index with a
// persistent on-disk representation, rebuildable from the Store.
package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Hit is one search result: the row id and its inner-product score
// against the query.
type Hit struct {
	ID    int
	Score float32
}

// Index is a flat inner-product index over unit vectors. Ids are
// monotonically increasing and assigned on Add; Rebuild is the only
// operation that may start id assignment over from zero.
type Index struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
	nextID  int
}

// New constructs an empty Index for vectors of the given dimension.
func New(dim int) *Index {
	return &Index{dim: dim}
}

// Dim returns the configured vector dimension.
func (idx *Index) Dim() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

// Add appends vector, returning its assigned id.
func (idx *Index) Add(vector []float32) (int, error) {
	if len(vector) != idx.dim {
		return 0, fmt.Errorf("vector dimension mismatch: got %d want %d", len(vector), idx.dim)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	id := idx.nextID
	stored := make([]float32, idx.dim)
	copy(stored, vector)
	idx.vectors = append(idx.vectors, stored)
	idx.nextID++
	return id, nil
}

// Search returns the top-k ids by inner-product score against query, in
// descending score order.
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != idx.dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d want %d", len(query), idx.dim)
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]Hit, 0, len(idx.vectors))
	for id, v := range idx.vectors {
		var dot float32
		for i, q := range query {
			dot += q * v[i]
		}
		hits = append(hits, Hit{ID: id, Score: dot})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Reset clears the index, restarting id assignment from zero. Used by
// Rebuild.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = nil
	idx.nextID = 0
}

// Save writes a simple binary representation: dim, count, then each
// vector's float32 components, little-endian.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	w := bufio.NewWriter(f)

	if err := binary.Write(w, binary.LittleEndian, int64(idx.dim)); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write dim: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, int64(len(idx.vectors))); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write count: %w", err)
	}
	for _, v := range idx.vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush index file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

// Load reads back an Index written by Save. A missing file yields an
// empty index of the configured dimension, not an error, so the caller
// can synthesize a fresh index on first startup.
func Load(path string, dim int) (*Index, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New(dim), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var fileDim, count int64
	if err := binary.Read(r, binary.LittleEndian, &fileDim); err != nil {
		return nil, fmt.Errorf("read dim: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}

	idx := New(int(fileDim))
	idx.vectors = make([][]float32, count)
	for i := int64(0); i < count; i++ {
		v := make([]float32, fileDim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		idx.vectors[i] = v
	}
	idx.nextID = int(count)
	return idx, nil
}
