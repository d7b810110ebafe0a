// Package domain contains the core business entities and errors for the
// soundbench pipeline: documents, chunks, embedding records and chat sessions.
// It has no dependencies on adapters or external services.
package domain
