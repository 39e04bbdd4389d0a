package domain

import "errors"

// Sentinel errors for the retrieval pipeline. Callers distinguish
// "try again" from "structurally invalid" by errors.Is against these.
var (
	// ErrMalformedSource signals ingestion input with no recognizable
	// article structure. Fatal for the ingestion run, never retried.
	ErrMalformedSource = errors.New("malformed source document")

	// ErrEmbeddingUnavailable signals an embedding API failure that
	// persisted through the bounded retry policy.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexUnavailable signals a vector index connectivity failure.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrSynthesisUnavailable signals a generative API failure that
	// persisted through the bounded retry policy.
	ErrSynthesisUnavailable = errors.New("answer synthesis unavailable")

	// ErrRequestTimeout signals that the overall request deadline was
	// exceeded. Surfaced immediately, never retried.
	ErrRequestTimeout = errors.New("request deadline exceeded")

	// ErrUnknownTool signals an invocation of a tool name outside the
	// registered set. Surfaced immediately, never retried.
	ErrUnknownTool = errors.New("unknown tool")
)
