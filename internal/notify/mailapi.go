package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// MailAPIClient sends OTP mail through a transactional mail HTTP API.
type MailAPIClient struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewMailAPIClient returns a client for the given mail API endpoint and key.
func NewMailAPIClient(baseURL, apiKey, sender string) *MailAPIClient {
	return &MailAPIClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SendResetCode posts the reset mail to the API. Does not log the code.
func (c *MailAPIClient) SendResetCode(ctx context.Context, email, code string) error {
	if c.BaseURL == "" {
		return fmt.Errorf("notify: mail API URL not configured")
	}
	body := map[string]interface{}{
		"from":    c.Sender,
		"to":      email,
		"subject": "Your CoolMath Pro password reset code",
		"text":    fmt.Sprintf("Your password reset code is %s. It is valid for 10 minutes.", code),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
