package retrieval

import (
	"context"

	"github.com/legex/CAI-Webex/pkg/rag/evidence"
)

// Retriever is one evidence leg of the pipeline.
type Retriever interface {
	// Source returns the evidence source tag this retriever emits.
	Source() string

	// Retrieve returns up to topK scored items for the query.
	// An empty slice with a nil error is a legitimate outcome.
	Retrieve(ctx context.Context, query string, topK int) ([]evidence.Item, error)
}
