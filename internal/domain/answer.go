package domain

// Answer is the synthesized response to a tool invocation. Ephemeral:
// constructed per request, discarded after the response.
type Answer struct {
	// Text is the answer body.
	Text string
	// Citations holds the ids of the passages the answer is grounded on,
	// in retrieval order. Empty for the fixed "no matching provision" answer.
	Citations []string
	// Grounded is false only for the fixed answer produced without
	// calling the generative API.
	Grounded bool
}
