package blocklist

import (
	"sort"

	"github.com/eliteGoblin/sleepshield/internal/domain"
)

// Default categories offered at setup. Setup may uncheck individual
// domains or whole categories; custom domains land in "Custom".
const (
	CategorySocial        = "Social Media"
	CategoryEntertainment = "Entertainment"
	CategoryWork          = "Work & Productivity"
	CategoryAI            = "AI & Research Tools"
	CategoryNews          = "News & Rabbit Holes"
	CategoryShopping      = "Shopping"
	CategoryEmail         = "Email"
	CategoryCustom        = "Custom"
)

// DefaultCatalog returns the stock category to domain mapping.
// Callers get a fresh copy; the catalog itself is never mutated.
func DefaultCatalog() domain.BlockList {
	return domain.BlockList{
		CategorySocial: {
			"facebook.com", "twitter.com", "x.com", "instagram.com",
			"reddit.com", "tiktok.com", "linkedin.com", "snapchat.com", "threads.net",
		},
		CategoryEntertainment: {
			"youtube.com", "netflix.com", "twitch.tv", "primevideo.com",
			"hotstar.com", "disneyplus.com", "hulu.com", "spotify.com",
		},
		CategoryWork: {
			"docs.google.com", "sheets.google.com", "slides.google.com",
			"notion.so", "slack.com", "trello.com", "asana.com",
			"monday.com", "figma.com", "canva.com", "github.com", "gitlab.com",
		},
		CategoryAI: {
			"chatgpt.com", "chat.openai.com", "claude.ai",
			"gemini.google.com", "perplexity.ai", "copilot.microsoft.com", "bard.google.com",
		},
		CategoryNews: {
			"news.google.com", "cnn.com", "bbc.com", "nytimes.com",
			"medium.com", "substack.com", "quora.com", "wikipedia.org",
		},
		CategoryShopping: {
			"amazon.com", "flipkart.com", "ebay.com", "myntra.com",
		},
		CategoryEmail: {
			"mail.google.com", "outlook.live.com", "mail.yahoo.com",
		},
	}
}

// Categories returns the category names of a blocklist in sorted order.
func Categories(list domain.BlockList) []string {
	names := make([]string, 0, len(list))
	for name := range list {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
