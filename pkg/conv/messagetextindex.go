package conv

import (
	"container/heap"
	"context"
	"sort"
	"sync"

	"github.com/convmem/convmem"
	"github.com/convmem/convmem/internal/encoding"
)

// ScoredTextLocation pairs a (message, chunk) location with a similarity score.
type ScoredTextLocation struct {
	MessageOrdinal MessageOrdinal
	ChunkOrdinal   ChunkOrdinal
	Score          float64
}

// ScoredMessageOrdinal pairs a message ordinal with an aggregated score.
type ScoredMessageOrdinal struct {
	MessageOrdinal MessageOrdinal
	Score          float64
}

// textRow is one stored chunk location, parallel to the vectors slice.
type textRow struct {
	MessageOrdinal MessageOrdinal
	ChunkOrdinal   ChunkOrdinal
}

// MessageTextIndex stores one embedding per chunk of every indexed message,
// for full-text semantic lookup independent of extracted knowledge.
type MessageTextIndex struct {
	mu       sync.RWMutex
	embedder Embedder
	locs     []textRow
	vectors  [][]float32
}

// NewMessageTextIndex returns an empty message text index using embedder.
func NewMessageTextIndex(embedder Embedder) *MessageTextIndex {
	return &MessageTextIndex{embedder: embedder}
}

// AddMessages embeds every chunk of every message (batched) and appends them
// in order, assigning message ordinals starting one past the highest message
// ordinal already indexed (0 for an empty index).
func (m *MessageTextIndex) AddMessages(ctx context.Context, msgs []Message) error {
	return m.AddMessagesStartingAt(ctx, m.nextOrdinal(), msgs)
}

func (m *MessageTextIndex) nextOrdinal() MessageOrdinal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := -1
	for _, l := range m.locs {
		if l.MessageOrdinal > max {
			max = l.MessageOrdinal
		}
	}
	return max + 1
}

// AddMessagesStartingAt embeds every chunk of msgs and appends them, treating
// msgs[0] as message ordinal startOrdinal, msgs[1] as startOrdinal+1, and so on.
func (m *MessageTextIndex) AddMessagesStartingAt(ctx context.Context, startOrdinal MessageOrdinal, msgs []Message) error {
	var allChunks []string
	var allLocs []textRow
	for i, msg := range msgs {
		ordinal := startOrdinal + i
		for chunkIdx, chunk := range msg.Chunks {
			allChunks = append(allChunks, chunk)
			allLocs = append(allLocs, textRow{MessageOrdinal: ordinal, ChunkOrdinal: chunkIdx})
		}
	}
	if len(allChunks) == 0 {
		return nil
	}
	vecs, err := m.embedder.EmbedBatch(ctx, allChunks)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range vecs {
		m.locs = append(m.locs, allLocs[i])
		m.vectors = append(m.vectors, Normalize(v))
	}
	return nil
}

// LookupText embeds text and returns up to maxMatches chunk locations
// scoring at least threshold, sorted descending by score.
func (m *MessageTextIndex) LookupText(ctx context.Context, text string, maxMatches int, threshold float64) ([]ScoredTextLocation, error) {
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return m.LookupByEmbedding(Normalize(vec), maxMatches, threshold), nil
}

// LookupByEmbedding is LookupText's form for a caller that already has the
// query embedding (skips re-embedding).
func (m *MessageTextIndex) LookupByEmbedding(queryVec []float32, maxMatches int, threshold float64) []ScoredTextLocation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return topKLocations(m.locs, m.vectors, nil, queryVec, maxMatches, threshold)
}

// LookupMessages aggregates per-chunk scores per message by max, then
// re-sorts and truncates to maxMatches messages scoring at least threshold.
func (m *MessageTextIndex) LookupMessages(ctx context.Context, text string, maxMatches int, threshold float64) ([]ScoredMessageOrdinal, error) {
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return aggregateByMessageMax(m.locs, m.vectors, nil, Normalize(vec), maxMatches, threshold), nil
}

// LookupMessagesInSubset restricts LookupMessages to a caller-provided set
// of message ordinals, filtering after ranking.
func (m *MessageTextIndex) LookupMessagesInSubset(ctx context.Context, text string, subset []MessageOrdinal, maxMatches int, threshold float64) ([]ScoredMessageOrdinal, error) {
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	allowed := make(map[MessageOrdinal]bool, len(subset))
	for _, o := range subset {
		allowed[o] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return aggregateByMessageMax(m.locs, m.vectors, allowed, Normalize(vec), maxMatches, threshold), nil
}

// LookupInSubsetByEmbedding is LookupMessagesInSubset's form for a caller
// that already has the query embedding.
func (m *MessageTextIndex) LookupInSubsetByEmbedding(queryVec []float32, subset []MessageOrdinal, maxMatches int, threshold float64) []ScoredMessageOrdinal {
	allowed := make(map[MessageOrdinal]bool, len(subset))
	for _, o := range subset {
		allowed[o] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return aggregateByMessageMax(m.locs, m.vectors, allowed, Normalize(queryVec), maxMatches, threshold)
}

// Size returns the number of indexed chunks.
func (m *MessageTextIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.locs)
}

// MessageTextIndexRow is the serialized shape of one indexed chunk: its
// location plus the encoded embedding, in the order a storage provider
// should rehydrate them — (message_ordinal, chunk_ordinal) ascending.
type MessageTextIndexRow struct {
	MessageOrdinal MessageOrdinal
	ChunkOrdinal   ChunkOrdinal
	Vector         []byte
}

// Serialize returns every indexed chunk's location and encoded embedding, in
// storage order, for a storage provider to persist.
func (m *MessageTextIndex) Serialize() ([]MessageTextIndexRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MessageTextIndexRow, len(m.locs))
	for i, loc := range m.locs {
		b, err := encoding.EncodeVector(m.vectors[i])
		if err != nil {
			return nil, convmem.WrapError("messageTextIndex.serialize", err)
		}
		out[i] = MessageTextIndexRow{MessageOrdinal: loc.MessageOrdinal, ChunkOrdinal: loc.ChunkOrdinal, Vector: b}
	}
	return out, nil
}

// Deserialize replaces the index's contents with rows, which must already be
// ordered (message_ordinal, chunk_ordinal) ascending — the order a storage
// provider's startup rehydration streams them in.
func (m *MessageTextIndex) Deserialize(rows []MessageTextIndexRow) error {
	locs := make([]textRow, len(rows))
	vectors := make([][]float32, len(rows))
	for i, r := range rows {
		v, err := encoding.DecodeVector(r.Vector, m.embedder.Dim())
		if err != nil {
			return convmem.WrapError("messageTextIndex.deserialize", convmem.ErrInvalidVector)
		}
		locs[i] = textRow{MessageOrdinal: r.MessageOrdinal, ChunkOrdinal: r.ChunkOrdinal}
		vectors[i] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locs = locs
	m.vectors = vectors
	return nil
}

type textHeapItem struct {
	idx   int
	score float64
}
type textMinHeap []textHeapItem

func (h textMinHeap) Len() int            { return len(h) }
func (h textMinHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h textMinHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *textMinHeap) Push(x interface{}) { *h = append(*h, x.(textHeapItem)) }
func (h *textMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

func topKLocations(locs []textRow, vectors [][]float32, allowed map[MessageOrdinal]bool, queryVec []float32, maxMatches int, threshold float64) []ScoredTextLocation {
	if maxMatches <= 0 || maxMatches > len(locs) {
		maxMatches = len(locs)
	}
	h := &textMinHeap{}
	heap.Init(h)
	for i, v := range vectors {
		if allowed != nil && !allowed[locs[i].MessageOrdinal] {
			continue
		}
		score := DotProduct(queryVec, v)
		if score < threshold {
			continue
		}
		if h.Len() < maxMatches {
			heap.Push(h, textHeapItem{idx: i, score: score})
		} else if h.Len() > 0 && score > (*h)[0].score {
			heap.Pop(h)
			heap.Push(h, textHeapItem{idx: i, score: score})
		}
	}
	out := make([]ScoredTextLocation, 0, h.Len())
	for _, it := range *h {
		loc := locs[it.idx]
		out = append(out, ScoredTextLocation{MessageOrdinal: loc.MessageOrdinal, ChunkOrdinal: loc.ChunkOrdinal, Score: it.score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].MessageOrdinal != out[j].MessageOrdinal {
			return out[i].MessageOrdinal < out[j].MessageOrdinal
		}
		return out[i].ChunkOrdinal < out[j].ChunkOrdinal
	})
	return out
}

func aggregateByMessageMax(locs []textRow, vectors [][]float32, allowed map[MessageOrdinal]bool, queryVec []float32, maxMatches int, threshold float64) []ScoredMessageOrdinal {
	best := make(map[MessageOrdinal]float64)
	for i, v := range vectors {
		loc := locs[i]
		if allowed != nil && !allowed[loc.MessageOrdinal] {
			continue
		}
		score := DotProduct(queryVec, v)
		if score < threshold {
			continue
		}
		if cur, ok := best[loc.MessageOrdinal]; !ok || score > cur {
			best[loc.MessageOrdinal] = score
		}
	}
	out := make([]ScoredMessageOrdinal, 0, len(best))
	for ord, score := range best {
		out = append(out, ScoredMessageOrdinal{MessageOrdinal: ord, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].MessageOrdinal < out[j].MessageOrdinal
	})
	if maxMatches > 0 && len(out) > maxMatches {
		out = out[:maxMatches]
	}
	return out
}
