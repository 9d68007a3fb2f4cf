package agent

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/llm"
)

const (
	banner = "═══════════════════════════════════════════════════════════\n"
	rule   = "─────────────────────────────────────────\n"

	placeholderContext  = "{context}"
	placeholderQuestion = "{question}"
)

const defaultInstructions = `You are a helpful assistant answering questions about the user's documents.
Use the provided context to answer the question.
If the context does not contain the answer, say so honestly. Do not make up information.
When you rely on a source, mention its filename.`

var personalities = map[string]string{
	"friendly":     "Be warm and approachable, and speak like a helpful colleague.",
	"professional": "Keep a formal, precise and businesslike tone.",
	"concise":      "Answer in as few words as the question allows.",
	"teacher":      "Explain step by step and check understanding the way a patient teacher would.",
	"creative":     "Feel free to use analogies and vivid examples while staying accurate.",
}

var responseStyles = map[string]string{
	"brief":    "Keep the answer to a short paragraph.",
	"detailed": "Give a thorough answer that covers relevant details and caveats.",
	"bullet":   "Format the answer as a bulleted list.",
}

func Personalities() []string {
	return slices.Sorted(maps.Keys(personalities))
}

func ResponseStyles() []string {
	return slices.Sorted(maps.Keys(responseStyles))
}

func ValidPersonality(name string) bool {
	_, ok := personalities[name]
	return name == "" || ok
}

func ValidResponseStyle(name string) bool {
	_, ok := responseStyles[name]
	return name == "" || ok
}

// assembles system instructions, retrieved sources, the tail of the
// history and the new question
func buildPrompt(req GenerateRequest, historyLimit int) llm.Prompt {
	session := req.Session
	excerpts := formatSources(req.Sources)

	// a template that places the context itself keeps it out of the system prompt
	templated := strings.Contains(session.PromptTemplate, placeholderContext)

	var system strings.Builder

	system.WriteString(banner)
	system.WriteString("INSTRUCTIONS\n")
	system.WriteString(banner)
	system.WriteString("\n")

	instructions := strings.TrimSpace(session.SystemPrompt)
	if instructions == "" {
		instructions = defaultInstructions
	}
	system.WriteString(instructions)
	system.WriteString("\n")

	if custom := strings.TrimSpace(session.CustomInstructions); custom != "" {
		system.WriteString("\nAdditional Instructions: ")
		system.WriteString(custom)
		system.WriteString("\n")
	}

	if directive, ok := personalities[session.Personality]; ok {
		system.WriteString("\nTone: ")
		system.WriteString(directive)
		system.WriteString("\n")
	}

	if directive, ok := responseStyles[session.ResponseStyle]; ok {
		system.WriteString("\nFormat: ")
		system.WriteString(directive)
		system.WriteString("\n")
	}

	if !templated {
		system.WriteString("\n")
		system.WriteString(banner)
		system.WriteString("CONTEXT\n")
		system.WriteString(banner)
		system.WriteString("\n")
		system.WriteString(excerpts)
	}

	messages := historyMessages(req.History, historyLimit)
	messages = append(messages, llm.Message{
		Role:    string(domain.RoleUser),
		Content: userContent(session.PromptTemplate, excerpts, req.UserMessage),
	})

	return llm.Prompt{
		System:   strings.TrimRight(system.String(), "\n"),
		Messages: messages,
	}
}

func formatSources(sources []domain.Source) string {
	if len(sources) == 0 {
		return "No document excerpts matched this question.\n"
	}

	var b strings.Builder

	for i, s := range sources {
		b.WriteString(rule)
		fmt.Fprintf(&b, "Source %d: %s (chunk %d of %d, relevance %.2f)\n",
			i+1,
			s.Metadata.Filename,
			s.Metadata.ChunkIndex+1,
			max(s.Metadata.TotalChunks, s.Metadata.ChunkIndex+1),
			s.Score,
		)
		b.WriteString(rule)
		b.WriteString(strings.TrimSpace(s.Content))
		b.WriteString("\n\n")
	}

	return b.String()
}

// the last limit messages, skipping anything without content
func historyMessages(history []domain.Message, limit int) []llm.Message {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	out := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}

		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}

	return out
}

// fills the session template in a single pass so substituted text is never
// expanded again
func userContent(template, excerpts, question string) string {
	if strings.TrimSpace(template) == "" {
		return question
	}

	content := strings.NewReplacer(
		placeholderContext, strings.TrimSpace(excerpts),
		placeholderQuestion, question,
	).Replace(template)

	if !strings.Contains(template, placeholderQuestion) {
		content += "\n\n" + question
	}

	return content
}
