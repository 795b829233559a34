package rag

import (
	"fmt"
	"strings"

	"manual-rag/internal/models"
)

// BuildPrompt renders the grounded prompt: instructions, the ranked context
// chunks, then the question and an answer cue.
func BuildPrompt(manualName, question string, results []models.RetrievalResult) string {
	var ctx strings.Builder
	for i, r := range results {
		fmt.Fprintf(&ctx, models.ChunkHeaderTemplate, i+1, r.Chapter, r.Page)
		ctx.WriteString(r.Text)
		ctx.WriteString("\n\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, models.PromptPreambleTemplate, manualName, models.RefusalAnswer)
	b.WriteString("\n\nContext:\n")
	b.WriteString(ctx.String())
	b.WriteString("\nQuestion:\n")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
