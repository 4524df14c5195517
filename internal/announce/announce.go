/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package announce posts a channel message about a published chapter via the
// Telegram Bot API. Message text comes from a template: {{Title}} and
// {{Link}} expand from the publish-history record, and any per-title
// variables expand on top of that.
package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chapterpress/internal/domain"
	applog "chapterpress/internal/log"
	"chapterpress/internal/settings"
	"chapterpress/internal/titles"
)

// DefaultTemplate is the message used when neither the call nor the config
// provides one.
const DefaultTemplate = "<b>{{Title}}</b>\n{{Link}}"

// ErrNoChannel is returned when no channel is given and none is remembered
// from an earlier announcement.
var ErrNoChannel = errors.New("no destination channel configured")

// Options configures the bot client.
type Options struct {
	BaseURL string // default https://api.telegram.org
	Token   string // bot token, required
	Timeout time.Duration
}

// Bot sends messages through the Telegram Bot API.
type Bot struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewBot creates a bot client. baseURL may carry a trailing slash; it is
// normalized.
func NewBot(opts Options) *Bot {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Bot{
		baseURL: base,
		token:   opts.Token,
		http:    &http.Client{Timeout: timeout},
	}
}

type sendMessageRequest struct {
	ChatID       string `json:"chat_id"`
	Text         string `json:"text"`
	ParseMode    string `json:"parse_mode"`
	ScheduleDate int64  `json:"schedule_date,omitempty"`
}

type apiResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts HTML text to a channel. chatID is a numeric channel id
// or an @channelname handle. A non-zero at schedules the message instead of
// sending it immediately.
func (b *Bot) SendMessage(ctx context.Context, chatID, text string, at time.Time) error {
	if b.token == "" {
		return errors.New("bot token is required")
	}
	if strings.TrimSpace(chatID) == "" {
		return ErrNoChannel
	}
	payload := sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"}
	if !at.IsZero() {
		payload.ScheduleDate = at.Unix()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", b.baseURL, b.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var api apiResponse
	if err := json.Unmarshal(raw, &api); err != nil {
		return fmt.Errorf("telegram sendMessage: status %d", resp.StatusCode)
	}
	if !api.Ok {
		return fmt.Errorf("telegram sendMessage: %s", api.Description)
	}
	return nil
}

// Render expands {{Title}} and {{Link}} from the history record, then the
// per-title variables. Variables with empty keys are skipped.
func Render(template string, rec domain.HistoryRecord, vars []domain.TitleVariable) string {
	text := strings.ReplaceAll(template, "{{Title}}", rec.Title)
	text = strings.ReplaceAll(text, "{{Link}}", rec.URL)
	args := make([]string, 0, len(vars)*2)
	for _, v := range vars {
		if v.Key == "" {
			continue
		}
		args = append(args, "{{"+v.Key+"}}", v.Value)
	}
	if len(args) > 0 {
		text = strings.NewReplacer(args...).Replace(text)
	}
	return text
}

// Sender is the message transport the service drives; *Bot satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string, at time.Time) error
}

// HistoryLookup resolves a publish-history record; *store.DB satisfies it.
type HistoryLookup interface {
	HistoryByID(ctx context.Context, id int64) (domain.HistoryRecord, error)
}

// Service announces published chapters. When no channel is passed it falls
// back to the last channel remembered in settings; an explicit channel is
// remembered for next time on success.
type Service struct {
	bot      Sender
	history  HistoryLookup
	settings *settings.Store
	titles   *titles.Store
	logger   *slog.Logger
}

// NewService wires the announcement flow. titles may be nil when per-title
// variables are not in play.
func NewService(bot Sender, history HistoryLookup, sets *settings.Store, ts *titles.Store) *Service {
	return &Service{
		bot:      bot,
		history:  history,
		settings: sets,
		titles:   ts,
		logger:   applog.WithComponent("announce"),
	}
}

// Announce renders and posts the message for one history record. An empty
// channel means the remembered one; an empty template means DefaultTemplate.
// Returns the text that was posted.
func (s *Service) Announce(ctx context.Context, historyID int64, channel, template string, at time.Time) (string, error) {
	rec, err := s.history.HistoryByID(ctx, historyID)
	if err != nil {
		return "", fmt.Errorf("announce: %w", err)
	}

	explicit := strings.TrimSpace(channel) != ""
	if !explicit {
		channel = s.rememberedChannel()
		if channel == "" {
			return "", ErrNoChannel
		}
	}
	if template == "" {
		template = DefaultTemplate
	}

	var vars []domain.TitleVariable
	if s.titles != nil && rec.TitleID > 0 {
		if t, ok := s.titles.ByID(rec.TitleID); ok {
			vars = t.Variables
		}
	}
	text := Render(template, rec, vars)

	if err := s.bot.SendMessage(ctx, channel, text, at); err != nil {
		return "", err
	}
	if explicit && s.settings != nil {
		s.settings.SetLastChannel(channel, "0", channel)
	}
	s.logger.Info("chapter announced",
		slog.Int64("history_id", historyID), slog.String("channel", channel))
	return text, nil
}

// rememberedChannel reads the last-used channel from settings. The stored
// zero value "0" means none.
func (s *Service) rememberedChannel() string {
	if s.settings == nil {
		return ""
	}
	id := strings.TrimSpace(s.settings.Snapshot().LastChannelID)
	if id == "" || id == "0" {
		return ""
	}
	return id
}
