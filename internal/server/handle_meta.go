package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/playperu/emojichain/internal/catalog"
	"github.com/playperu/emojichain/internal/emojichain"
)

// ScoreBoard lists the best score per mode.
type ScoreBoard interface {
	All(ctx context.Context) (map[emojichain.Mode]int, error)
}

// HighScoresResponse maps mode slugs to scores. Every mode is present.
type HighScoresResponse map[string]int

type CategoryInfo struct {
	Name   string   `json:"name"`
	Emojis []string `json:"emojis"`
}

type RuleInfo struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type CatalogResponse struct {
	Categories []CategoryInfo `json:"categories"`
	Rules      []RuleInfo     `json:"rules"`
	Modes      []string       `json:"modes"`
}

func handleHighScores(logger *slog.Logger, scores ScoreBoard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := scores.All(r.Context())
		if err != nil {
			logger.Error("listing high scores", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp := make(HighScoresResponse, len(emojichain.Modes()))
		for _, m := range emojichain.Modes() {
			resp[m.String()] = all[m]
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleCatalog(cat *catalog.Catalog) http.HandlerFunc {
	var resp CatalogResponse
	for _, c := range cat.Categories() {
		resp.Categories = append(resp.Categories, CategoryInfo{Name: c.Name, Emojis: nonNil(c.Emojis)})
	}
	for _, r := range emojichain.Rules() {
		resp.Rules = append(resp.Rules, RuleInfo{Slug: r.Slug(), Name: r.String()})
	}
	for _, m := range emojichain.Modes() {
		resp.Modes = append(resp.Modes, m.String())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, resp)
	}
}
