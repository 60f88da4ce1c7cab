// Package embedder generates vector embeddings for query text.
//
// The embedder supports multiple providers (Jina AI, OpenAI, and a
// deterministic local fallback) behind one interface, with content-hash
// caching and exponential-backoff retry for HTTP providers.
//
// # Basic Usage
//
//	// Create embedder (auto-detects provider from environment)
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	vector, err := emb.Embed(ctx, "affordable housing income limits")
//
// # Provider Selection
//
// QUERYOPT_EMBEDDING_PROVIDER selects a provider explicitly (jina, openai,
// local). When unset, the factory auto-detects from JINA_API_KEY and
// OPENAI_API_KEY, falling back to the local provider so the server always
// starts.
//
// # Caching
//
// Vectors are cached in an LRU keyed by SHA-256 content hash. The cache is
// shared across requests within one provider instance; Get returns copies
// so cached vectors cannot be mutated by callers.
//
// The optimizer layer consumes this package only through a function value,
// so any Embedder can be swapped in without touching the pipeline.
package embedder
