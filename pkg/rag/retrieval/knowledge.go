package retrieval

import (
	"context"
	"fmt"

	"github.com/legex/CAI-Webex/internal/constant"
	"github.com/legex/CAI-Webex/internal/repository/unitofwork"
	"github.com/legex/CAI-Webex/pkg/embedding"
	"github.com/legex/CAI-Webex/pkg/rag/evidence"
)

// KnowledgeRetriever searches the curated document index by cosine
// similarity over pgvector.
type KnowledgeRetriever struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	threshold         float64
}

var _ Retriever = &KnowledgeRetriever{}

func NewKnowledgeRetriever(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	threshold float64,
) *KnowledgeRetriever {
	return &KnowledgeRetriever{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		threshold:         threshold,
	}
}

func (r *KnowledgeRetriever) Source() string {
	return constant.EvidenceSourceKnowledge
}

func (r *KnowledgeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]evidence.Item, error) {
	queryVector, err := r.embeddingProvider.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	uow := r.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.DocumentEmbeddingRepository().SearchSimilarWithScore(ctx, queryVector, topK, r.threshold)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	items := make([]evidence.Item, 0, len(scored))
	for i, sc := range scored {
		if sc.Chunk == nil {
			continue
		}
		items = append(items, evidence.Item{
			Source:  constant.EvidenceSourceKnowledge,
			Ref:     sc.Chunk.Id.String(),
			Title:   sc.Chunk.Title,
			Content: sc.Chunk.Content,
			Score:   sc.Similarity,
			Rank:    i,
		})
	}

	return items, nil
}
