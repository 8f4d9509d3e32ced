package news

import (
	"math"
	"strings"
	"time"

	"quantfuse/internal/domain"

	"github.com/jonreiter/govader"
)

const (
	positiveCompound = 0.05
	negativeCompound = -0.05

	// Decay applied when an article carries no usable timestamp.
	fallbackDecay = 0.5
)

// importance categories in priority order; the first match wins.
var importanceLadder = []struct {
	weight   float64
	keywords []string
}{
	{1.0, []string{"earnings", "profit", "results", "revenue"}},
	{0.9, []string{"regulation", "rbi", "sebi", "policy"}},
	{0.8, []string{"merger", "acquisition", "deal"}},
	{0.7, []string{"ceo", "management", "board"}},
	{0.6, []string{"forecast", "outlook", "guidance"}},
	{0.3, []string{"opinion", "analyst", "view"}},
}

const defaultImportance = 0.4

// RawArticle is one unscored news row as delivered by a collaborator.
type RawArticle struct {
	Symbol      string
	PublishedAt string
	Source      string
	Author      string
	Title       string
	Description string
	URL         string
}

// Scorer converts raw articles into immutable scored NewsItems using a
// lexicon/rule-based sentiment analyzer, a keyword importance ladder and an
// exponential recency decay.
type Scorer struct {
	analyzer     *govader.SentimentIntensityAnalyzer
	halfLifeDays float64
	now          func() time.Time
}

func NewScorer(halfLifeDays float64, now func() time.Time) *Scorer {
	if halfLifeDays <= 0 {
		halfLifeDays = 3
	}
	if now == nil {
		now = time.Now
	}
	return &Scorer{
		analyzer:     govader.NewSentimentIntensityAnalyzer(),
		halfLifeDays: halfLifeDays,
		now:          now,
	}
}

func (s *Scorer) Score(article RawArticle) domain.NewsItem {
	text := strings.TrimSpace(article.Title + " " + article.Description)
	compound := s.analyzer.PolarityScores(text).Compound

	importance := importanceWeight(article.Title, article.Description)
	publishedAt, decay := s.recencyDecay(article.PublishedAt)

	return domain.NewsItem{
		Symbol:            strings.ToUpper(strings.TrimSpace(article.Symbol)),
		PublishedAt:       publishedAt,
		Source:            article.Source,
		Author:            article.Author,
		Title:             article.Title,
		Description:       article.Description,
		URL:               article.URL,
		SentimentCompound: compound,
		SentimentLabel:    sentimentLabel(compound),
		ImportanceWeight:  importance,
		RecencyDecay:      decay,
		BehaviouralScore:  compound * importance * decay,
	}
}

func (s *Scorer) ScoreAll(articles []RawArticle) []domain.NewsItem {
	items := make([]domain.NewsItem, 0, len(articles))
	for _, article := range articles {
		items = append(items, s.Score(article))
	}
	return items
}

func sentimentLabel(compound float64) domain.SentimentLabel {
	switch {
	case compound > positiveCompound:
		return domain.SentimentPositive
	case compound < negativeCompound:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func importanceWeight(title, description string) float64 {
	text := strings.ToLower(title + " " + description)
	for _, category := range importanceLadder {
		for _, keyword := range category.keywords {
			if strings.Contains(text, keyword) {
				return category.weight
			}
		}
	}
	return defaultImportance
}

// recencyDecay parses the published timestamp and returns exp(-age/halfLife)
// over whole days. Malformed or missing timestamps fail soft with a fixed
// decay instead of an error.
func (s *Scorer) recencyDecay(publishedAt string) (time.Time, float64) {
	parsed, ok := parseTimestamp(publishedAt)
	if !ok {
		return time.Time{}, fallbackDecay
	}
	ageDays := int(s.now().UTC().Sub(parsed).Hours() / 24)
	if ageDays < 0 {
		ageDays = 0
	}
	return parsed, math.Exp(-float64(ageDays) / s.halfLifeDays)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
