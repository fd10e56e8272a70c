package evidence

import "github.com/legex/CAI-Webex/internal/constant"

// Item is one piece of retrieved material headed for the prompt.
type Item struct {
	Source  string  // constant.EvidenceSourceKnowledge or constant.EvidenceSourceWeb
	Ref     string  // chunk id or URL
	Title   string
	Content string
	Score   float64
	Rank    int // position within its own retriever's result list
}

// Bundle is the fused, budget-trimmed evidence for one message.
type Bundle struct {
	Items []Item

	// Degraded is true when a retrieval leg errored or timed out. A leg
	// that ran fine and found nothing is not degradation; an empty index
	// is a valid answer.
	Degraded bool
}

// Empty reports whether generation will run without grounding material.
func (b Bundle) Empty() bool {
	return len(b.Items) == 0
}

func sourcePriority(source string) int {
	if source == constant.EvidenceSourceKnowledge {
		return 0
	}
	return 1
}
