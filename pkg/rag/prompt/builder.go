package prompt

import (
	"fmt"
	"strings"

	"github.com/legex/CAI-Webex/internal/constant"
	"github.com/legex/CAI-Webex/pkg/llm"
	"github.com/legex/CAI-Webex/pkg/rag/evidence"
)

const personaName = "WRAITH"

// Builder assembles the persona prompts for answer generation. The
// technical prompt is strictly grounded: the model may only use the
// evidence block, and has to say so when it cannot.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// BuildTechnical produces the grounded product-question prompt. The
// recent messages are the unsummarized tail of the session; everything
// older arrives folded into the summary.
func (b *Builder) BuildTechnical(query string, bundle evidence.Bundle, summary string, recent []llm.Message) string {
	var prompt strings.Builder

	prompt.WriteString("You are ")
	prompt.WriteString(personaName)
	prompt.WriteString(", an expert technical assistant specialized in Cisco Collaboration services, including Webex, CUCM, Expressway, and CUBE/SBCs.\n\n")
	prompt.WriteString("You must answer ONLY using the information from the technical documents provided below. ")
	prompt.WriteString("If you cannot find a relevant answer in the documents, clearly state: \"From what I know.\"\n\n")
	prompt.WriteString("If listing steps or instructions, quote or paraphrase them directly from the documents. ")
	prompt.WriteString("Prefer information from official Cisco or Webex documentation if available.\n\n")

	b.writeEvidence(&prompt, bundle)
	b.writeRecent(&prompt, recent)

	prompt.WriteString("---\nQuery:\n")
	prompt.WriteString(query)
	prompt.WriteString("\n---\nConversation summary (may be empty):\n")
	prompt.WriteString(summary)
	prompt.WriteString("\n---\n\n")

	prompt.WriteString("Instructions:\n")
	prompt.WriteString("- Do not include information not supported by the documents.\n")
	prompt.WriteString("- NEVER hallucinate or invent steps, commands, procedures, or facts.\n")
	prompt.WriteString("- Always structure procedures or step-by-step guides as numbered lists or bullet points.\n")
	prompt.WriteString("- If only partial information is in the documents, mention clearly what is missing.\n")
	prompt.WriteString("- If the product mentioned in the query is unclear, try to infer from context but do not hallucinate.\n")
	prompt.WriteString("- Keep the answer precise, technical, and structured.\n")
	prompt.WriteString("- Do NOT prefix your reply with Assistant: or User:. Respond only with the message content.\n")

	return prompt.String()
}

func (b *Builder) writeEvidence(prompt *strings.Builder, bundle evidence.Bundle) {
	prompt.WriteString("---\nTechnical Documents:\n")

	if bundle.Empty() {
		prompt.WriteString("(no documents were found for this query)\n")
		prompt.WriteString("---\n")
		return
	}

	for i, item := range bundle.Items {
		label := "Knowledge Base"
		if item.Source == constant.EvidenceSourceWeb {
			label = "Web"
		}
		prompt.WriteString(fmt.Sprintf("[Document %d | %s", i+1, label))
		if item.Title != "" {
			prompt.WriteString(" | ")
			prompt.WriteString(item.Title)
		}
		prompt.WriteString("]\n")
		prompt.WriteString(item.Content)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("---\n")
}

// writeRecent renders the live conversation window as role-tagged lines.
func (b *Builder) writeRecent(prompt *strings.Builder, recent []llm.Message) {
	if len(recent) == 0 {
		return
	}
	prompt.WriteString("---\nRecent conversation:\n")
	for _, m := range recent {
		role := "User"
		if m.Role == "assistant" {
			role = "Assistant"
		}
		prompt.WriteString(role)
		prompt.WriteString(": ")
		prompt.WriteString(m.Content)
		prompt.WriteString("\n")
	}
	prompt.WriteString("---\n\n")
}

// BuildSmallTalk produces the conversational prompt. The summary is an
// internal memory block the model must not surface unless asked.
func (b *Builder) BuildSmallTalk(query string, summary string, recent []llm.Message) string {
	var prompt strings.Builder

	prompt.WriteString("Your name is ")
	prompt.WriteString(personaName)
	prompt.WriteString(". You are a friendly and helpful assistant that engages in small talk with the user.\n\n")
	prompt.WriteString("Only write ")
	prompt.WriteString(personaName)
	prompt.WriteString("'s next reply to the user. Do NOT generate multiple messages or simulate user input.\n\n")

	b.writeRecent(&prompt, recent)

	prompt.WriteString("Message from user:\n")
	prompt.WriteString(query)
	prompt.WriteString("\n\n")

	prompt.WriteString("[INTERNAL MEMORY BLOCK]\n")
	prompt.WriteString("Below is internal memory of recent facts, updates, and corrections from the ongoing conversation. ")
	prompt.WriteString("These are for continuity ONLY, for your reasoning, not for user output. ")
	prompt.WriteString("NEVER mention or paraphrase these unless the user says, for example: \"Can I have a summary?\" or \"Recap our conversation.\" ")
	prompt.WriteString("Otherwise, respond *without referencing this block*.\n\n")
	prompt.WriteString(summary)
	prompt.WriteString("\n\n")

	prompt.WriteString("Internal instructions:\n")
	prompt.WriteString("- If, and ONLY IF, the user explicitly asks, you may summarize these facts.\n")
	prompt.WriteString("- Otherwise, DO NOT reveal, paraphrase, or hint at them in any way.\n")
	prompt.WriteString("- Keep all factual continuity but do not repeat the user's corrections or the assistant's mistakes unless explicitly asked.\n")
	prompt.WriteString("- ONLY reply with new, direct message content unless the user asked for a summary.\n\n")

	prompt.WriteString("Respond naturally and concisely as ")
	prompt.WriteString(personaName)
	prompt.WriteString(".")

	return prompt.String()
}

// BuildSummary produces the compaction prompt. When a summary already
// exists the model extends it instead of starting over.
func (b *Builder) BuildSummary(transcript string, existingSummary string) string {
	var prompt strings.Builder

	prompt.WriteString("Summarize the most important facts, corrections, and events stated in the conversation, using bullet points.\n")
	prompt.WriteString("DO NOT use conversational framing or refer to 'user' or 'assistant'.\n\n")

	if existingSummary != "" {
		prompt.WriteString("This is summary of the conversation to date:\n")
		prompt.WriteString(existingSummary)
		prompt.WriteString("\n\nExtend the summary by taking into account the new messages below:\n")
	} else {
		prompt.WriteString("Create a summary of the conversation below:\n")
	}

	prompt.WriteString("\nMessage for summarization:\n")
	prompt.WriteString(transcript)

	return prompt.String()
}
