package evidence

import (
	"strings"
	"testing"

	"github.com/legex/CAI-Webex/internal/constant"

	"github.com/stretchr/testify/assert"
)

func knowledgeItem(ref string, score float64, rank int, content string) Item {
	return Item{
		Source:  constant.EvidenceSourceKnowledge,
		Ref:     ref,
		Content: content,
		Score:   score,
		Rank:    rank,
	}
}

func webItem(ref string, score float64, rank int, content string) Item {
	return Item{
		Source:  constant.EvidenceSourceWeb,
		Ref:     ref,
		Content: content,
		Score:   score,
		Rank:    rank,
	}
}

func TestFuse_KnowledgeBeforeWeb(t *testing.T) {
	f := NewFuser(8000)

	knowledge := []Item{
		knowledgeItem("chunk-1", 0.4, 0, "low scored chunk"),
		knowledgeItem("chunk-2", 0.9, 1, "high scored chunk"),
	}
	web := []Item{
		webItem("https://example.com/a", 0.99, 0, "very high scored web hit"),
	}

	bundle := f.Fuse(knowledge, web)

	assert.Len(t, bundle.Items, 3)
	assert.Equal(t, "chunk-2", bundle.Items[0].Ref)
	assert.Equal(t, "chunk-1", bundle.Items[1].Ref)
	assert.Equal(t, "https://example.com/a", bundle.Items[2].Ref)
}

func TestFuse_BudgetDropsLowestScoreRegardlessOfSource(t *testing.T) {
	long := strings.Repeat("x", 100)
	f := NewFuser(250)

	knowledge := []Item{
		knowledgeItem("chunk-1", 0.9, 0, long),
		knowledgeItem("chunk-2", 0.2, 1, long), // weakest overall
	}
	web := []Item{
		webItem("https://example.com/a", 0.7, 0, long),
	}

	bundle := f.Fuse(knowledge, web)

	assert.Len(t, bundle.Items, 2)
	refs := []string{bundle.Items[0].Ref, bundle.Items[1].Ref}
	assert.Equal(t, []string{"chunk-1", "https://example.com/a"}, refs)
}

func TestFuse_BudgetTiePrefersDroppingWeb(t *testing.T) {
	long := strings.Repeat("x", 100)
	f := NewFuser(150)

	knowledge := []Item{knowledgeItem("chunk-1", 0.5, 0, long)}
	web := []Item{webItem("https://example.com/a", 0.5, 0, long)}

	bundle := f.Fuse(knowledge, web)

	assert.Len(t, bundle.Items, 1)
	assert.Equal(t, "chunk-1", bundle.Items[0].Ref)
}

func TestFuse_Deterministic(t *testing.T) {
	f := NewFuser(8000)

	knowledge := []Item{
		knowledgeItem("chunk-1", 0.5, 0, "a"),
		knowledgeItem("chunk-2", 0.5, 1, "b"),
		knowledgeItem("chunk-3", 0.8, 2, "c"),
	}
	web := []Item{
		webItem("https://example.com/a", 0.6, 0, "d"),
		webItem("https://example.com/b", 0.6, 1, "e"),
	}

	first := f.Fuse(knowledge, web)
	second := f.Fuse(knowledge, web)

	assert.Equal(t, first, second)
	// Equal scores fall back to retriever rank
	assert.Equal(t, "chunk-3", first.Items[0].Ref)
	assert.Equal(t, "chunk-1", first.Items[1].Ref)
	assert.Equal(t, "chunk-2", first.Items[2].Ref)
	assert.Equal(t, "https://example.com/a", first.Items[3].Ref)
	assert.Equal(t, "https://example.com/b", first.Items[4].Ref)
}

func TestFuse_EmptyLegsAreNotDegraded(t *testing.T) {
	f := NewFuser(8000)

	// An empty search result is a valid outcome; degradation is the
	// caller's call based on leg errors, never inferred from emptiness.
	bundle := f.Fuse(nil, nil)
	assert.True(t, bundle.Empty())
	assert.False(t, bundle.Degraded)

	bundle = f.Fuse([]Item{knowledgeItem("chunk-1", 0.9, 0, "content")}, nil)
	assert.False(t, bundle.Empty())
	assert.False(t, bundle.Degraded)
}
