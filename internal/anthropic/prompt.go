package anthropic

import (
	"fmt"
	"strings"

	"github.com/DeafMist/ai-news-radar/backend/internal/models"
)

const promptTemplate = `Search for the most recent and relevant news about %q from the last 30 days. For each news item provide a JSON object with this EXACT structure:

{
  "news": [
    {
      "id": 1,
      "title": "Headline of the news item",
      "url": "Full URL of the article",
      "source": "Name of the outlet",
      "date": "YYYY-MM-DD",
      "category": "One category among: %s",
      "abstract": "Detailed 2-3 sentence summary of the news item with specific information"
    }
  ]
}

Find at least 15-20 recent, verified news items. RESPOND ONLY WITH VALID JSON, NO OTHER TEXT. Do NOT use backticks or markdown.`

// BuildPrompt embeds query in the instruction that fixes the response schema.
func BuildPrompt(query string) string {
	names := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		names = append(names, string(c))
	}
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(query), strings.Join(names, ", "))
}
