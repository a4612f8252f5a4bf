package conv

import (
	"context"
	"testing"
)

func TestVectorBaseAddAndLookup(t *testing.T) {
	vb := NewVectorBase(NewHashEmbedder(32))
	ctx := context.Background()

	t.Run("AddKeyAssignsOrdinals", func(t *testing.T) {
		a, err := vb.AddKey(ctx, "dog")
		if err != nil {
			t.Fatalf("AddKey: %v", err)
		}
		b, err := vb.AddKey(ctx, "cat")
		if err != nil {
			t.Fatalf("AddKey: %v", err)
		}
		if a == b {
			t.Fatalf("expected distinct ordinals, got %d and %d", a, b)
		}
		if vb.Size() != 2 {
			t.Fatalf("expected size 2, got %d", vb.Size())
		}
	})

	t.Run("AddKeyIsIdempotentOnExactText", func(t *testing.T) {
		before := vb.Size()
		ord, err := vb.AddKey(ctx, "dog")
		if err != nil {
			t.Fatalf("AddKey: %v", err)
		}
		if ord != 0 {
			t.Errorf("expected re-adding \"dog\" to return ordinal 0, got %d", ord)
		}
		if vb.Size() != before {
			t.Errorf("expected size unchanged, got %d want %d", vb.Size(), before)
		}
	})

	t.Run("FuzzyLookupFindsExactRowFirst", func(t *testing.T) {
		hits, err := vb.FuzzyLookup(ctx, "dog", 1, 0)
		if err != nil {
			t.Fatalf("FuzzyLookup: %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("expected 1 hit, got %d", len(hits))
		}
		if hits[0].Ordinal != 0 {
			t.Errorf("expected ordinal 0 for exact-text lookup, got %d", hits[0].Ordinal)
		}
		if hits[0].Score < 0.999 {
			t.Errorf("expected near-1.0 score for exact text, got %f", hits[0].Score)
		}
	})

	t.Run("NormInvariantHolds", func(t *testing.T) {
		if !vb.CheckNormInvariant() {
			t.Error("expected every stored row to be unit-norm")
		}
	})
}

func TestVectorBaseAddKeysBatch(t *testing.T) {
	vb := NewVectorBase(NewHashEmbedder(16))
	ctx := context.Background()

	ords, err := vb.AddKeys(ctx, []string{"alpha", "beta", "alpha", "gamma"})
	if err != nil {
		t.Fatalf("AddKeys: %v", err)
	}
	if len(ords) != 4 {
		t.Fatalf("expected 4 ordinals, got %d", len(ords))
	}
	if ords[0] != ords[2] {
		t.Errorf("expected repeated text to share an ordinal, got %d and %d", ords[0], ords[2])
	}
	if vb.Size() != 3 {
		t.Errorf("expected 3 distinct rows, got %d", vb.Size())
	}
}

func TestVectorBaseSerializeRoundTrip(t *testing.T) {
	vb := NewVectorBase(NewHashEmbedder(24))
	ctx := context.Background()
	if _, err := vb.AddKeys(ctx, []string{"one", "two", "three"}); err != nil {
		t.Fatalf("AddKeys: %v", err)
	}

	texts, encoded, err := vb.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored := NewVectorBase(NewHashEmbedder(24))
	if err := restored.Deserialize(texts, encoded); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if restored.Size() != vb.Size() {
		t.Fatalf("expected restored size %d, got %d", vb.Size(), restored.Size())
	}
	if !restored.CheckNormInvariant() {
		t.Error("expected restored rows to remain unit-norm")
	}

	hits, err := restored.FuzzyLookup(ctx, "two", 1, 0)
	if err != nil {
		t.Fatalf("FuzzyLookup: %v", err)
	}
	if len(hits) != 1 || hits[0].Ordinal != 1 {
		t.Fatalf("expected restored lookup to find ordinal 1, got %+v", hits)
	}
}

func TestVectorBaseDeserializeRejectsMismatchedLengths(t *testing.T) {
	vb := NewVectorBase(NewHashEmbedder(8))
	err := vb.Deserialize([]string{"a", "b"}, [][]byte{{0, 0, 0, 0}})
	if err == nil {
		t.Fatal("expected an error for mismatched texts/vectors lengths")
	}
}
