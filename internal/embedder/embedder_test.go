package embedder

import (
	"context"
	"math"
	"testing"
)

func TestComputeHash(t *testing.T) {
	if got := ComputeHash(""); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("ComputeHash(\"\") = %v", got)
	}
	if got := ComputeHash("hello world"); got != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("ComputeHash(hello world) = %v", got)
	}
	if ComputeHash("a") == ComputeHash("b") {
		t.Error("distinct inputs produced the same hash")
	}
	if ComputeHash("same") != ComputeHash("same") {
		t.Error("identical inputs produced different hashes")
	}
}

func TestLocalProviderEmbed(t *testing.T) {
	provider, err := NewLocalProvider(nil)
	if err != nil {
		t.Fatalf("NewLocalProvider() error: %v", err)
	}
	ctx := context.Background()

	vec, err := provider.Embed(ctx, "income limits")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vec) != LocalDimension {
		t.Errorf("dimension = %d, want %d", len(vec), LocalDimension)
	}

	// Deterministic across calls
	vec2, err := provider.Embed(ctx, "income limits")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	for i := range vec {
		if vec[i] != vec2[i] {
			t.Fatalf("embedding not deterministic at index %d", i)
		}
	}

	// Different text, different vector
	other, err := provider.Embed(ctx, "set aside requirements")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	same := true
	for i := range vec {
		if vec[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct texts produced identical embeddings")
	}
}

func TestLocalProviderUnitLength(t *testing.T) {
	provider, _ := NewLocalProvider(nil)
	vec, err := provider.Embed(context.Background(), "normalize me")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-5 {
		t.Errorf("vector norm = %v, want 1.0", math.Sqrt(sum))
	}
}

func TestLocalProviderEmptyText(t *testing.T) {
	provider, _ := NewLocalProvider(nil)
	_, err := provider.Embed(context.Background(), "")
	if err != ErrEmptyText {
		t.Errorf("error = %v, want ErrEmptyText", err)
	}
}

func TestLocalProviderMetadata(t *testing.T) {
	provider, _ := NewLocalProvider(nil)
	if provider.Provider() != ProviderLocal {
		t.Errorf("Provider() = %q", provider.Provider())
	}
	if provider.Dimension() != LocalDimension {
		t.Errorf("Dimension() = %d", provider.Dimension())
	}
	if err := provider.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("NormalizeVector(3,4) = %v, want (0.6, 0.8)", v)
	}

	// Zero vector passes through unchanged
	z := NormalizeVector([]float32{0, 0})
	if z[0] != 0 || z[1] != 0 {
		t.Errorf("NormalizeVector(0,0) = %v", z)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(10)

	if _, ok := cache.Get("missing"); ok {
		t.Error("expected miss on empty cache")
	}

	cache.Set("h1", []float32{1, 2, 3})
	vec, ok := cache.Get("h1")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(vec) != 3 || vec[0] != 1 {
		t.Errorf("cached vector = %v", vec)
	}
	if cache.Size() != 1 {
		t.Errorf("Size() = %d, want 1", cache.Size())
	}

	// Callers can't corrupt the cached copy
	vec[0] = 99
	again, _ := cache.Get("h1")
	if again[0] != 1 {
		t.Errorf("caller mutation reached cached vector: %v", again)
	}

	cache.Clear()
	if cache.Size() != 0 {
		t.Errorf("Size() = %d after Clear, want 0", cache.Size())
	}
}

func TestProviderUsesCache(t *testing.T) {
	cache := NewCache(10)
	provider, _ := NewLocalProvider(cache)
	ctx := context.Background()

	if _, err := provider.Embed(ctx, "cached text"); err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if cache.Size() != 1 {
		t.Errorf("Size() = %d after first embed, want 1", cache.Size())
	}

	if _, err := provider.Embed(ctx, "cached text"); err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if cache.Size() != 1 {
		t.Errorf("Size() = %d after repeat embed, want 1", cache.Size())
	}
}
