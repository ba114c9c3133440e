// Package revalidate tells the statically built frontend to refresh its
// pages after content changes.
package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// Notifier POSTs {"secret", "resource"} to the frontend's revalidation
// endpoint. A Notifier with an empty URL does nothing.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	log    *zap.Logger
}

func New(url, secret string, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: requestTimeout},
		log:    log,
	}
}

// Trigger sends the notification in the background; failures are only logged.
func (n *Notifier) Trigger(resource string) {
	if n == nil || n.url == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := n.Send(ctx, resource); err != nil {
			n.log.Warn("revalidation failed", zap.String("resource", resource), zap.Error(err))
			return
		}
		n.log.Debug("revalidation triggered", zap.String("resource", resource))
	}()
}

// Send performs one notification and waits for the answer.
func (n *Notifier) Send(ctx context.Context, resource string) error {
	if n.url == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"secret":   n.secret,
		"resource": resource,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build revalidation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post revalidation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revalidation returned status %d", resp.StatusCode)
	}
	return nil
}
