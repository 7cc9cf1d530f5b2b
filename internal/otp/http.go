package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPWidget talks to an OTP service over JSON. The availability endpoint
// both checks the number and sends the code; verification posts to the
// sibling "verify-otp" path.
type HTTPWidget struct {
	endpoint   string
	verifyURL  string
	secretKey  string
	httpClient *http.Client
}

// NewHTTPWidget creates a widget for endpoint, e.g.
// http://host:3002/api/check-otp-availability.
func NewHTTPWidget(endpoint, secretKey string, timeout time.Duration) *HTTPWidget {
	endpoint = strings.TrimRight(endpoint, "/")
	verify := endpoint
	if i := strings.LastIndex(endpoint, "/"); i >= 0 {
		verify = endpoint[:i] + "/verify-otp"
	}
	return &HTTPWidget{
		endpoint:   endpoint,
		verifyURL:  verify,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type otpReply struct {
	Success   *bool  `json:"success"`
	Available *bool  `json:"available"`
	Verified  *bool  `json:"verified"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

// RequestCode implements Widget.
func (w *HTTPWidget) RequestCode(ctx context.Context, mobile string) error {
	r, err := w.post(ctx, w.endpoint, map[string]string{"mobile": mobile})
	if err != nil {
		return err
	}
	if isFalse(r.Available) || isFalse(r.Success) {
		return errors.New(firstNonEmpty(r.Error, r.Message, "OTP is not available for this number"))
	}
	return nil
}

// VerifyCode implements Widget.
func (w *HTTPWidget) VerifyCode(ctx context.Context, mobile, code string) error {
	r, err := w.post(ctx, w.verifyURL, map[string]string{"mobile": mobile, "otp": code})
	if err != nil {
		return err
	}
	if isFalse(r.Verified) || isFalse(r.Success) {
		return errors.New(firstNonEmpty(r.Error, r.Message, "OTP verification failed"))
	}
	return nil
}

func (w *HTTPWidget) post(ctx context.Context, url string, body map[string]string) (otpReply, error) {
	var reply otpReply
	data, err := json.Marshal(body)
	if err != nil {
		return reply, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return reply, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secretKey != "" {
		req.Header.Set("X-API-Key", w.secretKey)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return reply, fmt.Errorf("OTP service unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return reply, fmt.Errorf("failed to read OTP response: %w", err)
	}
	_ = json.Unmarshal(raw, &reply)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return reply, errors.New(firstNonEmpty(reply.Error, reply.Message, fmt.Sprintf("OTP service error (status %d)", resp.StatusCode)))
	}
	return reply, nil
}

func isFalse(b *bool) bool {
	return b != nil && !*b
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
