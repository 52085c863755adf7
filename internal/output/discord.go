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

// DiscordWriter sends jobs to a Discord channel via Webhook.
type DiscordWriter struct {
	webhookURL string
	client     Doer
	log        *slog.Logger
}

func NewDiscordWriter(webhookURL string, client Doer, logger *slog.Logger) *DiscordWriter {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscordWriter{
		webhookURL: webhookURL,
		client:     client,
		log:        logger.With("component", "discord"),
	}
}

func (dw *DiscordWriter) WriteJobs(ctx context.Context, jobs []model.Job) error {
	if len(jobs) == 0 {
		return dw.send(ctx, noJobsMessage)
	}

	entries := make([]string, len(jobs))
	for i, j := range jobs {
		entries[i] = formatDiscordJob(i+1, j)
	}
	header := fmt.Sprintf("**Found %d job(s):**\n\n", len(jobs))
	msgs := splitMessages(header, entries, discordMessageLimit)
	if err := sendEach(ctx, msgs, dw.send); err != nil {
		return err
	}
	dw.log.Info("shared jobs", "count", len(jobs), "messages", len(msgs))
	return nil
}

func formatDiscordJob(n int, j model.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%d. %s**\n", n, j.Title)
	fmt.Fprintf(&b, "> Company: %s\n", j.Company)
	fmt.Fprintf(&b, "> Location: %s\n", j.Location)
	if j.JobType != "" {
		fmt.Fprintf(&b, "> Type: %s\n", j.JobType)
	}
	if len(j.Tags) > 0 {
		fmt.Fprintf(&b, "> Tags: %s\n", strings.Join(j.Tags, ", "))
	}
	fmt.Fprintf(&b, "> Posted: %s\n", j.PostingDate.Date())
	b.WriteString("\n")
	return b.String()
}

type discordPayload struct {
	Content string `json:"content"`
}

func (dw *DiscordWriter) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(discordPayload{Content: text})
	if err != nil {
		return fmt.Errorf("discord: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dw.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("discord: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := dw.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var result map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("discord: API error %d: %v", resp.StatusCode, result["message"])
	}

	return nil
}
