package conv

import (
	"container/heap"
	"context"
	"math"
	"sort"
	"sync"

	"github.com/convmem/convmem"
	"github.com/convmem/convmem/internal/encoding"
)

// ScoredOrdinal pairs an ordinal into some parallel collection with a
// similarity score in [-1, 1].
type ScoredOrdinal struct {
	Ordinal int
	Score   float64
}

// VectorBase is an append-only N×D matrix of L2-normalized float32 vectors,
// one per registered text. It backs fuzzy (embedding-similarity) lookup for
// the related-terms index; the message text index keeps its own per-chunk
// vectors. Rows
// are never removed or reordered: an ordinal assigned at AddKey time is
// valid for the lifetime of the base.
type VectorBase struct {
	mu       sync.RWMutex
	embedder Embedder
	texts    []string
	vectors  [][]float32
}

// NewVectorBase returns an empty base drawing embeddings from embedder.
func NewVectorBase(embedder Embedder) *VectorBase {
	return &VectorBase{embedder: embedder}
}

// Size returns the number of rows currently stored.
func (vb *VectorBase) Size() int {
	vb.mu.RLock()
	defer vb.mu.RUnlock()
	return len(vb.texts)
}

// AddKey embeds text and appends it, returning its assigned ordinal. If text
// is already present (exact match) its existing ordinal is returned and no
// new row is added — the base stores distinct keys, not a multiset.
func (vb *VectorBase) AddKey(ctx context.Context, text string) (int, error) {
	vb.mu.Lock()
	for i, t := range vb.texts {
		if t == text {
			vb.mu.Unlock()
			return i, nil
		}
	}
	vb.mu.Unlock()

	vec, err := vb.embedder.Embed(ctx, text)
	if err != nil {
		return 0, convmem.WrapError("vectorBase.addKey", convmem.ErrEmbeddingFailed)
	}
	vec = Normalize(vec)

	vb.mu.Lock()
	defer vb.mu.Unlock()
	for i, t := range vb.texts {
		if t == text {
			return i, nil
		}
	}
	ord := len(vb.texts)
	vb.texts = append(vb.texts, text)
	vb.vectors = append(vb.vectors, vec)
	return ord, nil
}

// AddKeys embeds and appends several texts in one batch call, skipping any
// already present, and returns the ordinal assigned to (or already held by)
// each input text in input order.
func (vb *VectorBase) AddKeys(ctx context.Context, texts []string) ([]int, error) {
	result := make([]int, len(texts))
	toEmbed := make([]string, 0, len(texts))
	toEmbedIdx := make([]int, 0, len(texts))

	vb.mu.Lock()
	existing := make(map[string]int, len(vb.texts))
	for i, t := range vb.texts {
		existing[t] = i
	}
	for i, t := range texts {
		if ord, ok := existing[t]; ok {
			result[i] = ord
		} else {
			toEmbed = append(toEmbed, t)
			toEmbedIdx = append(toEmbedIdx, i)
		}
	}
	vb.mu.Unlock()

	if len(toEmbed) == 0 {
		return result, nil
	}

	vecs, err := vb.embedder.EmbedBatch(ctx, toEmbed)
	if err != nil {
		return nil, convmem.WrapError("vectorBase.addKeys", convmem.ErrEmbeddingFailed)
	}

	vb.mu.Lock()
	defer vb.mu.Unlock()
	for j, text := range toEmbed {
		// re-check: a concurrent AddKey may have inserted this text already
		found := -1
		for i, t := range vb.texts {
			if t == text {
				found = i
				break
			}
		}
		if found >= 0 {
			result[toEmbedIdx[j]] = found
			continue
		}
		ord := len(vb.texts)
		vb.texts = append(vb.texts, text)
		vb.vectors = append(vb.vectors, Normalize(vecs[j]))
		result[toEmbedIdx[j]] = ord
	}
	return result, nil
}

// GetText returns the text stored at ordinal, or "" and false if out of range.
func (vb *VectorBase) GetText(ordinal int) (string, bool) {
	vb.mu.RLock()
	defer vb.mu.RUnlock()
	if ordinal < 0 || ordinal >= len(vb.texts) {
		return "", false
	}
	return vb.texts[ordinal], true
}

// vbHeapItem and vbMinHeap implement a bounded min-heap over scores so that
// top-K search runs in O(N log K) rather than sorting the full base. Same
// shape as the teacher's flat index heap, generalized to arbitrary score.
type vbHeapItem struct {
	ordinal int
	score   float64
}

type vbMinHeap []vbHeapItem

func (h vbMinHeap) Len() int            { return len(h) }
func (h vbMinHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h vbMinHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *vbMinHeap) Push(x interface{}) { *h = append(*h, x.(vbHeapItem)) }
func (h *vbMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// FuzzyLookup embeds text and returns up to maxHits rows scoring at least
// minScore, sorted by descending score; ties break by ascending ordinal so
// results are stable across repeated lookups. maxHits <= 0 means unbounded.
func (vb *VectorBase) FuzzyLookup(ctx context.Context, text string, maxHits int, minScore float64) ([]ScoredOrdinal, error) {
	queryVec, err := vb.embedder.Embed(ctx, text)
	if err != nil {
		return nil, convmem.WrapError("vectorBase.fuzzyLookup", convmem.ErrEmbeddingFailed)
	}
	queryVec = Normalize(queryVec)
	return vb.fuzzyLookupVec(queryVec, maxHits, minScore), nil
}

func (vb *VectorBase) fuzzyLookupVec(queryVec []float32, maxHits int, minScore float64) []ScoredOrdinal {
	vb.mu.RLock()
	defer vb.mu.RUnlock()

	if maxHits <= 0 || maxHits > len(vb.vectors) {
		maxHits = len(vb.vectors)
	}
	if maxHits == 0 {
		return nil
	}

	h := &vbMinHeap{}
	heap.Init(h)
	for i, v := range vb.vectors {
		score := DotProduct(queryVec, v)
		if score < minScore {
			continue
		}
		if h.Len() < maxHits {
			heap.Push(h, vbHeapItem{ordinal: i, score: score})
		} else if h.Len() > 0 && score > (*h)[0].score {
			heap.Pop(h)
			heap.Push(h, vbHeapItem{ordinal: i, score: score})
		}
	}

	out := make([]ScoredOrdinal, 0, h.Len())
	for _, item := range *h {
		out = append(out, ScoredOrdinal{Ordinal: item.ordinal, Score: item.score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return out
}

// serializedVectorBase is the on-disk shape written by Serialize: parallel
// texts and row-major float32 vectors, each vector independently framed by
// internal/encoding's length-prefixed codec.
type serializedVectorBase struct {
	Texts   []string
	Vectors [][]byte
}

// Serialize returns texts and their encoded vectors in ordinal order, for a
// storage provider to persist as it sees fit (e.g. one row per SQLite table
// row). It does not itself decide a wire format beyond per-vector encoding.
func (vb *VectorBase) Serialize() (texts []string, encodedVectors [][]byte, err error) {
	vb.mu.RLock()
	defer vb.mu.RUnlock()

	texts = make([]string, len(vb.texts))
	copy(texts, vb.texts)

	encodedVectors = make([][]byte, len(vb.vectors))
	for i, v := range vb.vectors {
		b, encErr := encoding.EncodeVector(v)
		if encErr != nil {
			return nil, nil, convmem.WrapError("vectorBase.serialize", encErr)
		}
		encodedVectors[i] = b
	}
	return texts, encodedVectors, nil
}

// Deserialize replaces the base's contents with the given texts and encoded
// vectors, which must be parallel slices of equal length. Rows are assumed
// already L2-normalized (the invariant Serialize's producer must uphold).
func (vb *VectorBase) Deserialize(texts []string, encodedVectors [][]byte) error {
	if len(texts) != len(encodedVectors) {
		return convmem.WrapError("vectorBase.deserialize", convmem.ErrIntegrity)
	}
	vectors := make([][]float32, len(encodedVectors))
	for i, b := range encodedVectors {
		v, err := encoding.DecodeVector(b, vb.embedder.Dim())
		if err != nil {
			return convmem.WrapError("vectorBase.deserialize", convmem.ErrInvalidVector)
		}
		vectors[i] = v
	}

	vb.mu.Lock()
	defer vb.mu.Unlock()
	vb.texts = texts
	vb.vectors = vectors
	return nil
}

// CheckNormInvariant reports whether every stored row has L2 norm within
// 1e-4 of unity, the invariant Serialize/Deserialize round-tripping and
// AddKey/AddKeys must never violate. Intended for tests.
func (vb *VectorBase) CheckNormInvariant() bool {
	vb.mu.RLock()
	defer vb.mu.RUnlock()
	const tol = 1e-4
	for _, v := range vb.vectors {
		if len(v) == 0 {
			continue
		}
		var sumSq float64
		for _, x := range v {
			sumSq += float64(x) * float64(x)
		}
		root := math.Sqrt(sumSq)
		if root < 1-tol || root > 1+tol {
			return false
		}
	}
	return true
}
