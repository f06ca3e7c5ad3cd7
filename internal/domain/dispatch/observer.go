package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Observer consumes the result batch of every Send call. Observers run
// synchronously, in registration order, and must not mutate the results.
type Observer interface {
	OnDispatch(results []SendResult)
}

var _ Observer = (*LogObserver)(nil)

// LogObserver writes one structured log line per result.
type LogObserver struct{}

// NewLogObserver creates a logging observer.
func NewLogObserver() *LogObserver { return &LogObserver{} }

func (o *LogObserver) OnDispatch(results []SendResult) {
	for _, r := range results {
		if r.Success {
			slog.Info("dispatch result",
				"kind", r.Message.Kind,
				"to", r.Message.Recipient,
				"detail", r.Detail,
			)
		} else {
			slog.Error("dispatch result",
				"kind", r.Message.Kind,
				"to", r.Message.Recipient,
				"detail", r.Detail,
			)
		}
	}
}

var _ Observer = (*MetricsObserver)(nil)

// MetricsObserver accumulates running dispatch counts. It is safe for
// concurrent use; the HTTP surface reports its snapshot.
type MetricsObserver struct {
	mu       sync.Mutex
	total    int
	success  int
	failures int
}

// NewMetricsObserver creates an empty metrics observer.
func NewMetricsObserver() *MetricsObserver { return &MetricsObserver{} }

func (o *MetricsObserver) OnDispatch(results []SendResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.total += len(results)
	for _, r := range results {
		if r.Success {
			o.success++
		} else {
			o.failures++
		}
	}
}

// MetricsSnapshot is a point-in-time view of dispatch counts.
type MetricsSnapshot struct {
	Total    int `json:"total"`
	Success  int `json:"success"`
	Failures int `json:"failures"`
}

// Snapshot returns the current counts.
func (o *MetricsObserver) Snapshot() MetricsSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return MetricsSnapshot{Total: o.total, Success: o.success, Failures: o.failures}
}

var _ Observer = (*WebhookObserver)(nil)

// WebhookObserver POSTs each result batch to a configured URL.
// Delivery to the webhook is best-effort: failures are logged, never
// propagated to the caller.
type WebhookObserver struct {
	url        string
	httpClient *http.Client
}

// NewWebhookObserver creates a webhook observer for the given URL.
func NewWebhookObserver(url string) *WebhookObserver {
	return &WebhookObserver{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// webhookPayload is the body posted after each dispatch.
type webhookPayload struct {
	Count   int          `json:"count"`
	Results []SendResult `json:"results"`
}

func (o *WebhookObserver) OnDispatch(results []SendResult) {
	body, err := json.Marshal(webhookPayload{Count: len(results), Results: results})
	if err != nil {
		slog.Error("webhook payload marshal failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		slog.Error("webhook request build failed", "url", o.url, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		slog.Error("webhook post failed", "url", o.url, "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= 400 {
		slog.Error("webhook rejected results",
			"url", o.url,
			"status", resp.StatusCode,
			"count", len(results),
		)
		return
	}

	slog.Info("webhook notified", "url", o.url, "count", len(results))
}
