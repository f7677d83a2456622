package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// deliver sends a to every configured webhook target. Errors are logged.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(url, a)
		case "teams":
			err = e.sendTeams(url, a)
		case "http":
			err = e.sendHTTP(url, a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed", "type", wh.Type, "rule", a.RuleName, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "rule", a.RuleName, "state", a.State)
	}
}

// sendSlack posts a two-line message: what fired where, then the condition,
// the observed value and the source's coverage.
func (e *Engine) sendSlack(url string, a *Alert) error {
	head := fmt.Sprintf("*%s* %s on `%s`", severityLabel(a.Severity), a.RuleName, a.SourceID)
	if a.State == "resolved" {
		head = fmt.Sprintf("*[RESOLVED]* %s on `%s`", a.RuleName, a.SourceID)
	}
	detail := fmt.Sprintf("`%s`, value %s", a.Condition, formatValue(a.Value))
	if a.Coverage != nil {
		detail += fmt.Sprintf(", coverage %d%%", *a.Coverage)
	}
	body, _ := json.Marshal(map[string]string{"text": head + "\n" + detail})
	return e.post(url, body)
}

// sendTeams posts a MessageCard with the alert's facts.
func (e *Engine) sendTeams(url string, a *Alert) error {
	facts := []map[string]string{
		{"name": "Source", "value": a.SourceID},
		{"name": "Condition", "value": a.Condition},
		{"name": "Value", "value": formatValue(a.Value)},
	}
	if a.Coverage != nil {
		facts = append(facts, map[string]string{"name": "Coverage", "value": fmt.Sprintf("%d%%", *a.Coverage)})
	}
	facts = append(facts, map[string]string{"name": "Fired", "value": a.FiredAt.UTC().Format(time.RFC3339)})

	payload := map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity, a.State),
		"summary":    fmt.Sprintf("%s on %s", a.RuleName, a.SourceID),
		"title":      fmt.Sprintf("pipewatch %s: %s on %s", a.State, a.RuleName, a.SourceID),
		"sections":   []map[string]any{{"facts": facts}},
	}
	body, _ := json.Marshal(payload)
	return e.post(url, body)
}

func (e *Engine) sendHTTP(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]any{"alert": a})
	return e.post(url, body)
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// formatValue prints whole numbers without decimals.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(severity, state string) string {
	if state == "resolved" {
		return "2EB67D"
	}
	switch severity {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
