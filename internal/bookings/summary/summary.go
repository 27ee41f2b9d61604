// Package summary asks Gemini for a short operational summary of a campus
// schedule.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"classflow/pkg/client"
	"classflow/pkg/logger"
	"classflow/pkg/model"
)

const (
	MaxPromptBookings = 15

	MessageUnavailable = "AI 助理正在休息中，請稍後再查看課表分析。"
	MessageEmptyText   = "目前無法生成摘要。"

	apiKeyHeader = "x-goog-api-key"
)

func emptyScheduleMessage(locationName string) string {
	return locationName + " 分校目前尚無待處理的預約申請。"
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Summarizer never fails: every error path degrades to a fixed message.
type Summarizer struct {
	http  *client.HttpClient
	model string
	key   string
	log   *logger.Logger
}

func New(cfg Config, log *logger.Logger) *Summarizer {
	return &Summarizer{
		http:  client.NewHttpClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout),
		model: cfg.Model,
		key:   cfg.APIKey,
		log:   log,
	}
}

type scheduleEntry struct {
	Title string `json:"title"`
	Tutor string `json:"tutor"`
	Time  string `json:"time"`
	Date  string `json:"date"`
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

func (s *Summarizer) Summarize(ctx context.Context, locationName string, bookings []model.Booking) string {
	if len(bookings) == 0 {
		return emptyScheduleMessage(locationName)
	}
	if s.key == "" {
		s.log.Debug("Summary requested without an API key")
		return MessageUnavailable
	}

	prompt, err := buildPrompt(locationName, bookings)
	if err != nil {
		s.log.Error("Failed to build summary prompt", "error", err)
		return MessageUnavailable
	}

	req := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: 0.7, TopP: 0.9},
	}
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", url.PathEscape(s.model))

	resp, err := s.http.POSTWithHeaders(ctx, path, req, map[string]string{apiKeyHeader: s.key})
	if err != nil {
		s.log.Error("Gemini request failed", "error", err)
		return MessageUnavailable
	}
	if !resp.IsSuccess() {
		s.log.Error("Gemini returned an error",
			"status", resp.StatusCode,
			"message", client.GetErrorMessage(resp),
		)
		return MessageUnavailable
	}

	var out generateResponse
	if err := resp.DecodeJSON(&out); err != nil {
		s.log.Error("Failed to decode Gemini response", "error", err)
		return MessageUnavailable
	}

	text := out.text()
	if text == "" {
		return MessageEmptyText
	}
	return text
}

func buildPrompt(locationName string, bookings []model.Booking) (string, error) {
	n := len(bookings)
	if n > MaxPromptBookings {
		n = MaxPromptBookings
	}
	entries := make([]scheduleEntry, 0, n)
	for _, b := range bookings[:n] {
		entries = append(entries, scheduleEntry{
			Title: b.Title,
			Tutor: b.TeacherName,
			Time:  b.StartTime + " - " + b.EndTime,
			Date:  b.Date,
		})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`You are an operations assistant for ClassFlow, a Hong Kong tutoring center.
Analyze the following classroom booking schedule for our %s campus:
%s

Provide a professional, energetic summary in Traditional Chinese (Hong Kong style).
Focus on the bookings and classroom utilization. Max 100 words.
Use terms like "預約" or "課表" instead of "佔用".`, locationName, data), nil
}
