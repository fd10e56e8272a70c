package retrieval

import (
	"context"
	"fmt"

	"github.com/legex/CAI-Webex/internal/constant"
	"github.com/legex/CAI-Webex/pkg/rag/evidence"
	"github.com/legex/CAI-Webex/pkg/websearch"
)

// WebRetriever pulls supplemental hits from the web search API. It is an
// optional leg: when no searcher is configured the pipeline simply runs
// without it.
type WebRetriever struct {
	searcher websearch.Searcher
}

var _ Retriever = &WebRetriever{}

func NewWebRetriever(searcher websearch.Searcher) *WebRetriever {
	return &WebRetriever{searcher: searcher}
}

func (r *WebRetriever) Source() string {
	return constant.EvidenceSourceWeb
}

func (r *WebRetriever) Retrieve(ctx context.Context, query string, topK int) ([]evidence.Item, error) {
	results, err := r.searcher.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}

	items := make([]evidence.Item, 0, len(results))
	for i, res := range results {
		if res.Content == "" {
			continue
		}
		items = append(items, evidence.Item{
			Source:  constant.EvidenceSourceWeb,
			Ref:     res.URL,
			Title:   res.Title,
			Content: res.Content,
			Score:   res.Score,
			Rank:    i,
		})
	}

	return items, nil
}
