package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
)

// WebhookSender posts one Teams-compatible message card per discovered
// tool. Send failures are logged and reported per tool; they never abort
// the caller.
type WebhookSender struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewWebhookSender(url string, client *http.Client, logger *zap.Logger) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSender{url: url, client: client, logger: logger}
}

// SendAll delivers every tool in order, continuing past individual
// failures.
func (s *WebhookSender) SendAll(ctx context.Context, tools []domain.ToolInfo) {
	for i, t := range tools {
		if err := s.send(ctx, t, i+1); err != nil {
			s.logger.Warn("webhook delivery failed",
				zap.String("tool", t.Title), zap.Error(err))
		}
	}
}

func (s *WebhookSender) send(ctx context.Context, t domain.ToolInfo, idx int) error {
	payload, err := json.Marshal(map[string]string{"text": formatTool(t, idx)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}

func formatTool(t domain.ToolInfo, idx int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### 🚀 AI Tool %d: %s\n\n", idx, orNA(t.Title))
	if t.Website != t.SourceURL {
		fmt.Fprintf(&b, "**🌐 Website:** [%s](%s)\n\n", t.Website, t.Website)
	}
	fmt.Fprintf(&b, "**🔗 Source:** [%s](%s)\n\n", t.SourceURL, t.SourceURL)
	fmt.Fprintf(&b, "**🎯 Target Audience:** %s\n\n", orNA(t.TargetAudience))
	fmt.Fprintf(&b, "**📝 Overview:**\n%s\n\n", orNA(t.Summary))
	if len(t.Features) > 0 {
		b.WriteString("**💡 Key Features:**\n")
		for _, f := range t.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "**💲 Pricing:** %s\n", orNA(t.Pricing))
	return b.String()
}
