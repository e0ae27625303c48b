// Package sendgrid delivers submission artifacts by email through the
// SendGrid v3 mail API.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/draftbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/envutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/httpx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type Config struct {
	APIKey     string
	BaseURL    string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		APIKey:     envutil.String("SENDGRID_API_KEY", "", nil),
		BaseURL:    envutil.String("SENDGRID_BASE_URL", "https://api.sendgrid.com", log),
		FromEmail:  envutil.String("SENDGRID_FROM_EMAIL", "", log),
		FromName:   envutil.String("SENDGRID_FROM_NAME", "draftbridge", log),
		Timeout:    envutil.Seconds("SENDGRID_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries: envutil.Int("SENDGRID_MAX_RETRIES", 4, log),
	}
}

func (c Config) Enabled() bool { return strings.TrimSpace(c.APIKey) != "" }

type Client interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
}

type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type Attachment struct {
	Filename string
	MIMEType string
	Content  []byte
}

type Message struct {
	To          []Address
	Subject     string
	Text        string
	Attachments []Attachment
}

type SendResult struct {
	StatusCode int
	MessageID  string
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("missing SENDGRID_FROM_EMAIL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "SendGridClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             Address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
	Attachments      []wireAttachment  `json:"attachments,omitempty"`
}

type personalization struct {
	To []Address `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type wireAttachment struct {
	Content     string `json:"content"`
	Type        string `json:"type,omitempty"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition,omitempty"`
}

func (c *client) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("sendgrid: recipient required")
	}
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		return nil, fmt.Errorf("sendgrid: subject required")
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		text = subject
	}
	wire := mailSendRequest{
		Personalizations: []personalization{{To: msg.To}},
		From:             Address{Email: c.cfg.FromEmail, Name: c.cfg.FromName},
		Subject:          subject,
		Content:          []mailContent{{Type: "text/plain", Value: text}},
	}
	for _, a := range msg.Attachments {
		if strings.TrimSpace(a.Filename) == "" || len(a.Content) == 0 {
			return nil, fmt.Errorf("sendgrid: attachment needs a filename and content")
		}
		wire.Attachments = append(wire.Attachments, wireAttachment{
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			Type:        a.MIMEType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}

	resp, err := c.do(ctx, "/v3/mail/send", wire)
	if err != nil {
		return nil, err
	}
	return &SendResult{
		StatusCode: resp.StatusCode,
		MessageID:  strings.TrimSpace(resp.Header.Get("X-Message-Id")),
	}, nil
}

func (c *client) do(ctx context.Context, path string, body any) (*http.Response, error) {
	backoff := 1 * time.Second
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := c.doOnce(ctx, path, body)
		if err == nil {
			return resp, nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.cfg.MaxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("SendGrid request retrying", "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func (c *client) doOnce(ctx context.Context, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &httpx.StatusError{Service: "sendgrid", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}
