package drafting

import (
	"strings"
)

const (
	SectionStart = "--- Start of Material Section ---"
	SectionEnd   = "--- End of Section ---"
)

// PromptInput is the assignment context plus the ranked chunk texts.
type PromptInput struct {
	Title        string
	Instructions string
	Sections     []string
}

// BuildPrompt renders the grounding prompt. Each section is wrapped in
// explicit markers so the model can tell material apart from instructions.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString("You are helping a student complete a course assignment using only their course materials. ")
	b.WriteString("Write a complete, well-structured answer to the assignment below.\n\n")

	b.WriteString("ASSIGNMENT\n")
	b.WriteString("Title: ")
	b.WriteString(strings.TrimSpace(in.Title))
	b.WriteString("\nInstructions: ")
	b.WriteString(strings.TrimSpace(in.Instructions))
	b.WriteString("\n\n")

	b.WriteString("COURSE MATERIALS\n")
	if len(in.Sections) == 0 {
		b.WriteString("(no matching material was found)\n")
	}
	for i, s := range in.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(SectionStart)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(s))
		b.WriteString("\n")
		b.WriteString(SectionEnd)
		b.WriteString("\n")
	}

	b.WriteString("\nYour answer must:\n")
	b.WriteString("1. Address every part of the assignment.\n")
	b.WriteString("2. Support its points with information from the course materials.\n")
	b.WriteString("3. Be organized with a clear structure.\n")
	b.WriteString("4. Use examples or evidence taken from the materials.\n\n")

	b.WriteString("DO NOT:\n")
	b.WriteString("- Make up information that is not in the materials.\n")
	b.WriteString("- Include personal opinions unless the assignment asks for them.\n")
	b.WriteString("- Copy large sections of the materials verbatim.\n\n")

	b.WriteString("Format the answer the way the assignment calls for (essay, report, analysis, and so on).\n\n")
	b.WriteString("ANSWER:")
	return b.String()
}
