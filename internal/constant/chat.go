package constant

// Turn roles
const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

// Intent labels. The set is open-ended; the pipeline only branches on these two.
const (
	IntentSmallTalk = "SMALLTALK"
	IntentRAGQuery  = "RAGQUERY"
)

// Evidence sources
const (
	EvidenceSourceKnowledge = "knowledge"
	EvidenceSourceWeb       = "web"
)

// Pipeline stages, used for logging and telemetry events
const (
	StageClassifying = "classifying"
	StageRetrieving  = "retrieving"
	StageFusing      = "fusing"
	StageGenerating  = "generating"
	StagePersisting  = "persisting"
	StageSummarizing = "summarizing"
)

// FallbackReply is the user-visible text when generation retries are exhausted
// or the per-message deadline expires. Never expose raw errors to the chat.
const FallbackReply = "Sorry, I'm having trouble answering right now. Please try again in a moment."
