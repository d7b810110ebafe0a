// Package driven defines the outbound ports of the soundbench core: the
// interfaces the pipeline and assistant services require from infrastructure
// (LLM provider, embedding provider, vector store, manifest, prompts).
// Adapters under internal/adapters/driven implement them.
package driven
