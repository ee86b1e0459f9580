package processing

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/DeafMist/ai-news-radar/backend/internal/models"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	urlRegex   = regexp.MustCompile(`^https?://[^\s]+$`)
	separators = strings.NewReplacer("-", " ", "_", " ")
)

// Italian labels used by earlier prompts.
var categoryAliases = map[string]models.Category{
	"ia generativa": models.CategoryGenerativeAI,
	"genai":         models.CategoryGenerativeAI,
	"robotica":      models.CategoryRobotics,
	"mercati":       models.CategoryMarkets,
	"eventi":        models.CategoryEvents,
	"sicurezza":     models.CategorySecurity,
	"tendenze":      models.CategoryTrends,
	"report":        models.CategoryReports,
	"innovazione":   models.CategoryInnovation,
}

func init() {
	for _, c := range models.Categories {
		categoryAliases[categoryKey(string(c))] = c
	}
}

// CleanText unescapes HTML entities, squeezes whitespace and trims the input.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// NormalizeURL returns raw when it is an absolute http(s) URL and models.NoLink otherwise.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !urlRegex.MatchString(trimmed) {
		return models.NoLink
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return models.NoLink
	}
	return trimmed
}

// NormalizeCategory maps free-form labels onto the fixed enumeration.
// Unknown labels, and the reserved system bucket, become Uncategorized.
func NormalizeCategory(raw string) models.Category {
	if c, ok := categoryAliases[categoryKey(raw)]; ok {
		return c
	}
	return models.CategoryUncategorized
}

func categoryKey(raw string) string {
	key := separators.Replace(strings.ToLower(CleanText(raw)))
	return whitespace.ReplaceAllString(strings.TrimSpace(key), " ")
}
