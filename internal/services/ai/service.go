package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dimasprabowo/fintrack/internal/models"
	"google.golang.org/genai"
)

// ErrGeneration is returned when the provider fails to produce an insight.
// Generation has no hidden state: re-invoking the call restarts it.
var ErrGeneration = errors.New("insight generation failed")

// Service produces financial insights from a snapshot and its aggregates
type Service struct {
	cfg   *Config
	cache *insightCache
}

// NewService creates a new insight service
func NewService(cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		cfg:   cfg,
		cache: newInsightCache(cfg.CacheTTL),
	}
}

// Generate asks the model for a short analysis of the given snapshot.
// The output is a few "- " bullet lines followed by one paragraph of
// recommendations; use SplitInsight to separate them.
func (s *Service) Generate(ctx context.Context, summary models.Summary, transactions []models.Transaction) (string, error) {
	prompt := buildPrompt(summary, transactions)

	if s.cfg.CacheEnabled {
		if text, ok := s.cache.get(prompt); ok {
			return text, nil
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      s.cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := client.Models.GenerateContent(ctx, s.cfg.Model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response from model", ErrGeneration)
	}

	if s.cfg.CacheEnabled {
		s.cache.put(prompt, text)
	}
	return text, nil
}

func buildPrompt(summary models.Summary, transactions []models.Transaction) string {
	var b strings.Builder
	b.WriteString("Write a short financial analysis based on the following data:\n")
	fmt.Fprintf(&b, "income = %s\n", summary.Income)
	fmt.Fprintf(&b, "expense = %s\n", summary.Expense)
	fmt.Fprintf(&b, "balance = %s\n", summary.Balance)
	b.WriteString("transactions:\n")
	for _, t := range transactions {
		fmt.Fprintf(&b, "- %s (%s, %s): %s on %s\n", t.Title, t.Category, t.Kind, t.Amount, t.Date)
	}
	b.WriteString("\nFormat exactly like this (no bold, no markdown):\n")
	b.WriteString("- Largest expense: ...\n")
	b.WriteString("- Total savings: ...\n")
	b.WriteString("- Income/expense ratio: ...\n")
	b.WriteString("- Financial status: ...\n")
	b.WriteString("Then give one short paragraph of recommendations.\n")
	return b.String()
}

// SplitInsight separates the model output into its leading "- " bullet
// lines and the trailing paragraph.
func SplitInsight(text string) (bullets, paragraph string) {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	i := 0
	for ; i < len(lines); i++ {
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "-") {
			break
		}
	}

	bullets = strings.Join(lines[:i], "\n")
	paragraph = strings.TrimSpace(strings.Join(lines[i:], "\n"))
	return bullets, paragraph
}
