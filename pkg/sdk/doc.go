// Package nexus provides an embeddable Go client for the nexus
// retrieval-augmented search pipeline backed by Redis with the search
// module.
//
// The client wires the same components the nexus server runs: the
// OpenAI-compatible embedding provider behind a Redis-backed cache, the
// namespace-partitioned vector index, and an optional Gemini answer
// generator. Everything executes in-process; only Redis and the model
// endpoints are remote.
//
// # Searching
//
//	client, err := nexus.New(ctx,
//	    nexus.WithRedis("localhost:6379", ""),
//	    nexus.WithOpenAIEmbedding(nexus.EmbeddingConfig{
//	        BaseURL: "http://localhost:8081/v1",
//	        Model:   "sentence-transformers/all-MiniLM-L12-v2",
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	res, err := client.Search(ctx, "who works on search infrastructure?", 5)
//	for _, m := range res.Matches {
//	    fmt.Printf("%.3f %s %s\n", m.Score, m.ID, m.Text)
//	}
//	fmt.Println(res.Answer)
//
// # Ingesting
//
//	src, _ := nexus.FileSource("export.json")
//	report, err := client.Ingest(ctx, src)
//
// Any type with Name and Fetch can act as a Source; AirtableSource,
// NotionSource and FileSource cover the built-in connectors. Custom
// embedding or generation providers plug in through the Embedder and
// Generator interfaces with WithEmbedder and WithGenerator.
package nexus
