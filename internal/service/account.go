package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Profile is the optional account detail returned by sign-in.
type Profile struct {
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	Mobile   string `json:"mobile,omitempty"`
}

// SignUpRequest is the sign-up form.
type SignUpRequest struct {
	FullName        string
	Username        string
	Email           string
	Mobile          string
	Password        string
	ConfirmPassword string
}

// SignIn checks credentials. Any 2xx is a success; a body that is not a
// JSON profile yields an empty Profile.
func (c *Client) SignIn(ctx context.Context, username, password string) (Profile, error) {
	resp, id, err := c.postForm(ctx, "signin", c.endpoint(c.cfg.SignInPath), [][2]string{
		{"username", username},
		{"password", password},
	})
	if err != nil {
		return Profile{}, err
	}
	if err := checkStatus(resp, id); err != nil {
		return Profile{}, err
	}
	defer resp.Body.Close()

	var p Profile
	if isJSON(resp.Header.Get("Content-Type")) {
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return Profile{}, nil
		}
	}
	return p, nil
}

// SignUp registers an account. Only the status matters.
func (c *Client) SignUp(ctx context.Context, r SignUpRequest) error {
	resp, id, err := c.postForm(ctx, "signup", c.endpoint(c.cfg.SignUpPath), [][2]string{
		{"fullname", r.FullName},
		{"username", r.Username},
		{"email", r.Email},
		{"mobile", r.Mobile},
		{"password", r.Password},
		{"re_enter_password", r.ConfirmPassword},
	})
	if err != nil {
		return err
	}
	if err := checkStatus(resp, id); err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// History fetches the raw chat-history document for username. Shape
// interpretation is left to the history package.
func (c *Client) History(ctx context.Context, username string) (json.RawMessage, error) {
	req, err := newRequest(ctx, http.MethodGet, c.endpoint(c.cfg.HistoryPath, username), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, id, err := c.do(req, "history")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, id); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "history", RequestID: id, Err: err}
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("history: response is not JSON")
	}
	return raw, nil
}

// postForm sends small text-only multipart forms, buffered in memory.
func (c *Client) postForm(ctx context.Context, op, u string, fields [][2]string) (*http.Response, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := newRequest(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, op)
}
