package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"text2ppt/internal/attach"
	"text2ppt/internal/logging"
)

// GenerateRequest is one generation call's form payload.
type GenerateRequest struct {
	Text           string
	Reference      string
	DeliverByEmail bool
	Username       string // omitted from the form when empty
	Document       *attach.File
	Images         []attach.File
}

// Response is a successful (2xx) generation reply. Exactly one of
// Payload or Body is set, depending on the content type.
type Response struct {
	RequestID   string
	StatusCode  int
	ContentType string

	// Payload is the decoded JSON object. A JSON body that is not an
	// object, or fails to decode, yields an empty map.
	Payload map[string]any

	// Body streams a binary reply. The caller must Close it.
	Body io.ReadCloser
}

// IsJSON reports whether the reply was a JSON document.
func (r *Response) IsJSON() bool {
	return r.Payload != nil
}

// Close releases the body of a binary reply. Safe on JSON replies.
func (r *Response) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Generate posts a multipart generation request. The form is streamed
// through a pipe so attachments are never held in memory. Non-2xx replies
// return *HTTPError; network failures return *TransportError.
func (c *Client) Generate(ctx context.Context, gr GenerateRequest) (*Response, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	req, err := newRequest(ctx, http.MethodPost, c.endpoint(c.cfg.GeneratePath), pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	// The transport closes the request body on every path, which unblocks
	// the writer if the request dies before the form is consumed.
	go func() {
		pw.CloseWithError(writeGenerateForm(mw, gr))
	}()

	logging.APIDebug("generate: text_len=%d email=%v doc=%v images=%d",
		len(gr.Text), gr.DeliverByEmail, gr.Document != nil, len(gr.Images))

	resp, id, err := c.do(req, "generate")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, id); err != nil {
		return nil, err
	}

	out := &Response{
		RequestID:   id,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if !isJSON(out.ContentType) {
		out.Body = resp.Body
		return out, nil
	}

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "generate", RequestID: id, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	out.Payload = map[string]any{}
	if err := json.Unmarshal(raw, &out.Payload); err != nil || out.Payload == nil {
		logging.Get(logging.CategoryAPI).Warnw("unusable JSON body", "request_id", id, "error", err)
		out.Payload = map[string]any{}
	}
	return out, nil
}

func writeGenerateForm(mw *multipart.Writer, gr GenerateRequest) error {
	email := "no"
	if gr.DeliverByEmail {
		email = "yes"
	}
	fields := [][2]string{
		{"text", gr.Text},
		{"reference", gr.Reference},
		{"send_via_email", email},
	}
	if gr.Username != "" {
		fields = append(fields, [2]string{"username", gr.Username})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	if gr.Document != nil {
		if err := writeFilePart(mw, "doc", *gr.Document); err != nil {
			return err
		}
	}
	for _, img := range gr.Images {
		if err := writeFilePart(mw, "images", img); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFilePart(mw *multipart.Writer, field string, f attach.File) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
	ct := f.MIMEType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create part %s: %w", field, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer src.Close()

	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to stream %s: %w", f.Name, err)
	}
	return nil
}
