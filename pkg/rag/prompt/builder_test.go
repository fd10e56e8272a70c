package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/legex/CAI-Webex/internal/constant"
	"github.com/legex/CAI-Webex/pkg/llm"
	"github.com/legex/CAI-Webex/pkg/rag/evidence"
)

func TestBuildTechnical_IncludesRecentConversation(t *testing.T) {
	b := NewBuilder()

	bundle := evidence.Bundle{Items: []evidence.Item{{
		Source:  constant.EvidenceSourceKnowledge,
		Title:   "SIP Trunk Guide",
		Content: "Create the trunk under Device > Trunk.",
	}}}
	recent := []llm.Message{
		{Role: "user", Content: "my cluster name is ALPHA-7"},
		{Role: "assistant", Content: "Noted, ALPHA-7 it is."},
	}

	out := b.BuildTechnical("what did I name my cluster?", bundle, "", recent)

	assert.Contains(t, out, "Recent conversation:")
	assert.Contains(t, out, "User: my cluster name is ALPHA-7")
	assert.Contains(t, out, "Assistant: Noted, ALPHA-7 it is.")
	// history appears before the query section
	assert.Less(t, strings.Index(out, "ALPHA-7"), strings.Index(out, "Query:"))
}

func TestBuildTechnical_OmitsEmptyHistorySection(t *testing.T) {
	b := NewBuilder()

	out := b.BuildTechnical("how do I configure CUCM?", evidence.Bundle{}, "", nil)

	assert.NotContains(t, out, "Recent conversation:")
	assert.Contains(t, out, "(no documents were found for this query)")
}

func TestBuildSmallTalk_IncludesRecentConversation(t *testing.T) {
	b := NewBuilder()

	recent := []llm.Message{
		{Role: "user", Content: "call me Sam"},
		{Role: "assistant", Content: "Will do, Sam!"},
	}

	out := b.BuildSmallTalk("do you remember my name?", "", recent)

	assert.Contains(t, out, "User: call me Sam")
	assert.Contains(t, out, "Assistant: Will do, Sam!")
	assert.Contains(t, out, "[INTERNAL MEMORY BLOCK]")
}
