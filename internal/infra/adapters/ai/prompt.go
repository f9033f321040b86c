package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"channel-insight/internal/domain/model"

	"github.com/pkoukk/tiktoken-go"
)

const systemInstruction = `You analyze the audience reception of a YouTube video from its comments and transcript.
Respond with a single JSON object and nothing else, using exactly these keys:
{"summary": string, "sentimentScore": number between -1 and 1, "topTopics": [string], "suggestions": [string]}`

// buildPrompt assembles the per-video analysis prompt, trimming the comment
// block and transcript so the whole prompt stays inside the token budget.
func buildPrompt(v model.VideoDetail, modelName string, budget int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video title: %s\n", v.Title)
	if v.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", trimToBudget(v.Description, modelName, budget/8))
	}
	if len(v.Comments) > 0 {
		b.WriteString("\nViewer comments:\n")
		comments := trimToBudget(strings.Join(v.Comments, "\n- "), modelName, budget/2)
		b.WriteString("- " + comments + "\n")
	}
	if v.CaptionText != "" {
		b.WriteString("\nTranscript excerpt:\n")
		b.WriteString(trimToBudget(v.CaptionText, modelName, budget/4))
		b.WriteString("\n")
	}
	b.WriteString("\nAnalyze sentiment, recurring topics and improvement suggestions.")
	return systemInstruction + "\n\n" + b.String()
}

// trimToBudget cuts text to at most budget tokens for the given model,
// falling back to cl100k_base when the model is unknown to tiktoken.
func trimToBudget(text, modelName string, budget int) string {
	if budget <= 0 {
		return text
	}
	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// No encoder available; fall back to a crude rune cut.
			if len(text) > budget*4 {
				return string([]rune(text)[:budget*4])
			}
			return text
		}
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}

// parseAnalysis decodes the model's JSON reply, tolerating markdown fences.
func parseAnalysis(raw string) (model.VideoAnalysis, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	var out model.VideoAnalysis
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return model.VideoAnalysis{}, err
	}
	if out.Summary == "" {
		return model.VideoAnalysis{}, errors.New("analysis reply missing summary")
	}
	if out.TopTopics == nil {
		out.TopTopics = []string{}
	}
	if out.Suggestions == nil {
		out.Suggestions = []string{}
	}
	return out, nil
}
