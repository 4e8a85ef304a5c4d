package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gearxr/gear/pkg/core"
)

// ParseHotspotConfig reads a type-specific hotspot config. Fields that do not
// parse are left at their zero value; an unreadable payload yields an empty
// config.
func (p *Parser) ParseHotspotConfig(raw string) core.HotspotConfig {
	var cfg core.HotspotConfig

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return cfg
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		p.logger.Debug("Unreadable hotspot config", "payload", raw, "error", err)
		return cfg
	}

	if v, ok := obj["options"]; ok {
		var opts []string
		if err := json.Unmarshal(v, &opts); err == nil {
			cfg.Options = opts
		} else {
			var csv string
			if err := json.Unmarshal(v, &csv); err == nil {
				cfg.Options = SplitOptions(csv)
			} else {
				p.logger.Debug("Skipped hotspot config field", "field", "options", "error", err)
			}
		}
	}

	if v, ok := obj["correctAnswer"]; ok && string(v) != "null" {
		if n, err := parseIntFromFloat(v); err == nil {
			cfg.CorrectAnswer = &n
		} else {
			p.logger.Debug("Skipped hotspot config field", "field", "correctAnswer", "error", err)
		}
	}

	if v, ok := obj["points"]; ok {
		if n, err := parseIntFromFloat(v); err == nil {
			cfg.Points = &n
		} else {
			p.logger.Debug("Skipped hotspot config field", "field", "points", "error", err)
		}
	}

	readString := func(key string, into *string) {
		v, ok := obj[key]
		if !ok {
			return
		}
		if err := json.Unmarshal(v, into); err != nil {
			p.logger.Debug("Skipped hotspot config field", "field", key, "error", err)
		}
	}
	readString("audioUrl", &cfg.AudioURL)
	readString("url", &cfg.URL)

	return cfg
}

// SplitOptions splits a comma-separated option list, trimming whitespace and
// dropping empty entries.
func SplitOptions(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// StripCodeFence removes a surrounding ``` or ```json fence from generated text.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseGeneratedQuiz decodes the JSON object returned by quiz generation.
// Unlike the tolerant parsers this one is strict: a quiz with no question or
// fewer than two options is rejected so the caller can leave its form alone.
func ParseGeneratedQuiz(text string) (core.GeneratedQuiz, error) {
	var q core.GeneratedQuiz
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &q); err != nil {
		return core.GeneratedQuiz{}, fmt.Errorf("parsing generated quiz: %w", err)
	}
	if strings.TrimSpace(q.Question) == "" {
		return core.GeneratedQuiz{}, fmt.Errorf("parsing generated quiz: missing question")
	}
	if len(q.Options) < 2 {
		return core.GeneratedQuiz{}, fmt.Errorf("parsing generated quiz: need at least 2 options, got %d", len(q.Options))
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return core.GeneratedQuiz{}, fmt.Errorf("parsing generated quiz: correct index %d out of range", q.Correct)
	}
	return q, nil
}
