package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rsilvagit/go-jobs/internal/model"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Doer sends HTTP requests. *httpclient.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TelegramWriter sends jobs to a Telegram chat via the Bot API.
type TelegramWriter struct {
	token   string
	chatID  string
	apiBase string
	client  Doer
	log     *slog.Logger
}

func NewTelegramWriter(token, chatID string, client Doer, logger *slog.Logger) *TelegramWriter {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramWriter{
		token:   token,
		chatID:  chatID,
		apiBase: defaultTelegramAPI,
		client:  client,
		log:     logger.With("component", "telegram"),
	}
}

// WithAPIBase points the writer at another Bot API host.
func (tw *TelegramWriter) WithAPIBase(base string) *TelegramWriter {
	tw.apiBase = strings.TrimRight(base, "/")
	return tw
}

func (tw *TelegramWriter) WriteJobs(ctx context.Context, jobs []model.Job) error {
	if len(jobs) == 0 {
		return tw.send(ctx, escapeMarkdown(noJobsMessage))
	}

	entries := make([]string, len(jobs))
	for i, j := range jobs {
		entries[i] = formatJob(i+1, j)
	}
	header := fmt.Sprintf("*Found %d job\\(s\\):*\n\n", len(jobs))
	msgs := splitMessages(header, entries, telegramMessageLimit)
	if err := sendEach(ctx, msgs, tw.send); err != nil {
		return err
	}
	tw.log.Info("shared jobs", "count", len(jobs), "messages", len(msgs))
	return nil
}

func formatJob(n int, j model.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d\\. %s*\n", n, escapeMarkdown(j.Title))
	fmt.Fprintf(&b, "Company: %s\n", escapeMarkdown(j.Company))
	fmt.Fprintf(&b, "Location: %s\n", escapeMarkdown(j.Location))
	fmt.Fprintf(&b, "Type: %s\n", escapeMarkdown(string(j.JobType)))
	if len(j.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", escapeMarkdown(strings.Join(j.Tags, ", ")))
	}
	fmt.Fprintf(&b, "Posted: %s\n", escapeMarkdown(j.PostingDate.Date()))
	b.WriteString("\n")
	return b.String()
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
		"(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`",
		">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
		"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}",
		".", "\\.", "!", "\\!",
	)
	return replacer.Replace(s)
}

func (tw *TelegramWriter) send(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", tw.apiBase, tw.token)

	payload := map[string]string{
		"chat_id":    tw.chatID,
		"text":       text,
		"parse_mode": "MarkdownV2",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tw.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error %d: %v", resp.StatusCode, result["description"])
	}

	return nil
}
