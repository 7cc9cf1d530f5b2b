package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text2ppt/internal/attach"
	"text2ppt/internal/download"
	"text2ppt/internal/service"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

type fakeClient struct {
	mu    sync.Mutex
	calls []service.GenerateRequest
	resp  func(req service.GenerateRequest) (*service.Response, error)
	gate  chan struct{}
}

func (f *fakeClient) Generate(_ context.Context, req service.GenerateRequest) (*service.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	return f.resp(req)
}

func (f *fakeClient) Calls() []service.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.GenerateRequest(nil), f.calls...)
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func jsonResp(payload map[string]any) func(service.GenerateRequest) (*service.Response, error) {
	return func(service.GenerateRequest) (*service.Response, error) {
		return &service.Response{StatusCode: 200, ContentType: "application/json", Payload: payload}, nil
	}
}

func binaryResp(body *trackingBody) func(service.GenerateRequest) (*service.Response, error) {
	return func(service.GenerateRequest) (*service.Response, error) {
		return &service.Response{StatusCode: 200, ContentType: "application/octet-stream", Body: body}, nil
	}
}

func errResp(err error) func(service.GenerateRequest) (*service.Response, error) {
	return func(service.GenerateRequest) (*service.Response, error) { return nil, err }
}

type fakeSaver struct {
	names []string
	data  []string
	err   error
}

func (s *fakeSaver) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.names = append(s.names, name)
	s.data = append(s.data, string(b))
	return filepath.Join("/downloads", name), nil
}

type user string

func (u user) Username() (string, bool) { return string(u), u != "" }

func newLifecycle(c *fakeClient, s Saver, id IdentitySource) *Lifecycle {
	return New(c, s, id, attach.NewSet(attach.DefaultLimits()))
}

func stageAll(t *testing.T, l *Lifecycle) {
	t.Helper()
	st := l.Staging()
	require.NoError(t, st.StageDocument(attach.File{Name: "notes.pdf", Size: 10}))
	require.NoError(t, st.StageImages([]attach.File{{Name: "a.png", Size: 1, MIMEType: "image/png"}}))
	st.SetReference("  https://ref.example  ")
}

func TestQuarterlyReviewAnonymousDownload(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("PK\x03\x04")}
	c := &fakeClient{resp: binaryResp(body)}
	s := &fakeSaver{}
	l := newLifecycle(c, s, nil)

	l.SetPrompt("quarterly review")
	st, err := l.Submit(context.Background())
	require.NoError(t, err)

	calls := c.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "quarterly review", calls[0].Text)
	assert.False(t, calls[0].DeliverByEmail)
	assert.Empty(t, calls[0].Username)

	require.IsType(t, Succeeded{}, st)
	ok := st.(Succeeded)
	assert.Equal(t, OutcomeDownloaded, ok.Outcome)
	assert.Equal(t, MsgDownloaded, ok.Message)
	assert.Nil(t, ok.Deck)
	assert.Equal(t, []string{download.DefaultFileName}, s.names)
	assert.Equal(t, []string{"PK\x03\x04"}, s.data)
	assert.True(t, body.closed, "response body must be released")
	assert.Equal(t, "", l.Prompt())
}

func TestSubmitDeclinesWithoutInput(t *testing.T) {
	c := &fakeClient{resp: jsonResp(map[string]any{})}
	l := newLifecycle(c, &fakeSaver{}, nil)

	l.SetPrompt("   ")
	_, err := l.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNothingToSubmit)
	assert.IsType(t, Idle{}, l.State())
	assert.Empty(t, c.Calls())
	assert.False(t, l.CanSubmit())

	// A staged document alone is enough.
	require.NoError(t, l.Staging().StageDocument(attach.File{Name: "a.txt", Size: 1}))
	assert.True(t, l.CanSubmit())
	_, err = l.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Calls(), 1)
	assert.Equal(t, "", c.Calls()[0].Text)
}

func TestSignedInAsksForDelivery(t *testing.T) {
	c := &fakeClient{resp: jsonResp(map[string]any{"message": "Check your inbox"})}
	l := newLifecycle(c, &fakeSaver{}, user("alice"))
	stageAll(t, l)
	l.SetPrompt("  roadmap  ")

	st, err := l.Submit(context.Background())
	require.NoError(t, err)
	assert.IsType(t, AwaitingDeliveryChoice{}, st)
	assert.Empty(t, c.Calls(), "no call before the choice")

	st, err = l.ChooseDelivery(context.Background(), true)
	require.NoError(t, err)

	calls := c.Calls()
	require.Len(t, calls, 1)
	req := calls[0]
	assert.Equal(t, "roadmap", req.Text)
	assert.Equal(t, "https://ref.example", req.Reference)
	assert.True(t, req.DeliverByEmail)
	assert.Equal(t, "alice", req.Username)
	require.NotNil(t, req.Document)
	assert.Equal(t, "notes.pdf", req.Document.Name)
	assert.Len(t, req.Images, 1)

	require.IsType(t, Succeeded{}, st)
	assert.Equal(t, OutcomeEmailConfirmed, st.(Succeeded).Outcome)
	assert.Equal(t, "Check your inbox", st.(Succeeded).Message)
	assert.True(t, l.Staging().Snapshot().IsEmpty())
	assert.Equal(t, "", l.Prompt())
}

type switchableUser struct{ name string }

func (u *switchableUser) Username() (string, bool) { return u.name, u.name != "" }

func TestChooseDeliveryAfterSignOut(t *testing.T) {
	c := &fakeClient{resp: jsonResp(map[string]any{"title": "Roadmap"})}
	id := &switchableUser{name: "alice"}
	l := newLifecycle(c, &fakeSaver{}, id)
	l.SetPrompt("roadmap")

	st, err := l.Submit(context.Background())
	require.NoError(t, err)
	require.IsType(t, AwaitingDeliveryChoice{}, st)

	id.name = ""
	st, err = l.ChooseDelivery(context.Background(), true)
	require.NoError(t, err)

	calls := c.Calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].DeliverByEmail)
	assert.Empty(t, calls[0].Username)
	require.IsType(t, Succeeded{}, st)
	assert.Equal(t, OutcomeDeck, st.(Succeeded).Outcome)
}

func TestEmailFallbackMessage(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("ok")}
	for name, resp := range map[string]func(service.GenerateRequest) (*service.Response, error){
		"json without message": jsonResp(map[string]any{"status": "queued"}),
		"non-json body":        binaryResp(body),
	} {
		t.Run(name, func(t *testing.T) {
			s := &fakeSaver{}
			l := newLifecycle(&fakeClient{resp: resp}, s, user("bob"))
			l.SetPrompt("x")
			_, err := l.Submit(context.Background())
			require.NoError(t, err)

			st, err := l.ChooseDelivery(context.Background(), true)
			require.NoError(t, err)
			assert.Equal(t, MsgEmailSent, st.(Succeeded).Message)
			assert.Empty(t, s.names, "email delivery never saves a file")
		})
	}
	assert.True(t, body.closed)
}

func TestCancelDeliveryChoice(t *testing.T) {
	c := &fakeClient{resp: jsonResp(map[string]any{})}
	l := newLifecycle(c, &fakeSaver{}, user("alice"))
	l.SetPrompt("x")

	require.ErrorIs(t, l.CancelDeliveryChoice(), ErrInvalidTransition)

	_, err := l.Submit(context.Background())
	require.NoError(t, err)
	require.NoError(t, l.CancelDeliveryChoice())
	assert.IsType(t, Idle{}, l.State())
	assert.Empty(t, c.Calls())
	assert.Equal(t, "x", l.Prompt())
}

func TestChooseDeliveryRequiresQuestion(t *testing.T) {
	l := newLifecycle(&fakeClient{resp: jsonResp(nil)}, &fakeSaver{}, nil)
	_, err := l.ChooseDelivery(context.Background(), false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSlideArrayBuildsDeck(t *testing.T) {
	payload := map[string]any{
		"presentationTitle": "Plan",
		"slides": []any{
			map[string]any{"title": "One", "content": "c", "text": "t"},
			map[string]any{"text": "second"},
			map[string]any{},
		},
	}
	l := newLifecycle(&fakeClient{resp: jsonResp(payload)}, &fakeSaver{}, nil)
	stageAll(t, l)
	l.SetPrompt("plan")

	st, err := l.Submit(context.Background())
	require.NoError(t, err)

	ok := st.(Succeeded)
	require.Equal(t, OutcomeDeck, ok.Outcome)
	require.Equal(t, 3, ok.Deck.Len())
	for i, s := range ok.Deck.Slides {
		assert.Equal(t, i+1, s.ID)
	}
	assert.Equal(t, "c", ok.Deck.Slides[0].Content)
	assert.Equal(t, "Slide 3", ok.Deck.Slides[2].Title)
	assert.Equal(t, "Plan", ok.Deck.Title)
	assert.True(t, l.Staging().Snapshot().IsEmpty())
}

func TestPayloadWithoutSlidesIsOneSlide(t *testing.T) {
	l := newLifecycle(&fakeClient{resp: jsonResp(map[string]any{"title": "Solo"})}, &fakeSaver{}, nil)
	l.SetPrompt("the prompt")

	st, err := l.Submit(context.Background())
	require.NoError(t, err)

	d := st.(Succeeded).Deck
	require.Equal(t, 1, d.Len())
	assert.Equal(t, "Solo", d.Slides[0].Title)
	assert.Equal(t, "the prompt", d.Slides[0].Content)
}

func TestFailurePreservesInput(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"http error", &service.HTTPError{StatusCode: 400, Message: "Please provide text content or upload a document"}, "Please provide text content or upload a document"},
		{"transport error", &service.TransportError{Op: "generate", Err: errors.New("connection refused")}, MsgGenericFail},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), MsgGenericFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLifecycle(&fakeClient{resp: errResp(tt.err)}, &fakeSaver{}, nil)
			stageAll(t, l)
			l.SetPrompt("keep me")
			before := l.Staging().Snapshot()

			st, err := l.Submit(context.Background())
			require.NoError(t, err)

			require.IsType(t, Failed{}, st)
			assert.Equal(t, tt.want, st.(Failed).Message)
			assert.ErrorIs(t, st.(Failed).Err, tt.err)
			assert.False(t, l.IsBusy())
			assert.Equal(t, "keep me", l.Prompt())
			assert.Equal(t, before, l.Staging().Snapshot())

			l.Acknowledge()
			assert.IsType(t, Idle{}, l.State())
		})
	}
}

func TestSaveFailureIsFailed(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("data")}
	l := newLifecycle(&fakeClient{resp: binaryResp(body)}, &fakeSaver{err: errors.New("disk full")}, nil)
	l.SetPrompt("x")

	st, err := l.Submit(context.Background())
	require.NoError(t, err)
	require.IsType(t, Failed{}, st)
	assert.Contains(t, st.(Failed).Message, "disk full")
	assert.True(t, body.closed)
	assert.Equal(t, "x", l.Prompt())
}

func TestBusyGuard(t *testing.T) {
	gate := make(chan struct{})
	c := &fakeClient{resp: jsonResp(map[string]any{}), gate: gate}
	l := newLifecycle(c, &fakeSaver{}, nil)
	l.SetPrompt("x")

	done := make(chan State)
	go func() {
		st, _ := l.Submit(context.Background())
		done <- st
	}()

	require.Eventually(t, l.IsBusy, timeout, tick)

	_, err := l.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = l.ChooseDelivery(context.Background(), false)
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, l.CanSubmit())

	close(gate)
	st := <-done
	assert.IsType(t, Succeeded{}, st)
	assert.False(t, l.IsBusy())
	assert.Len(t, c.Calls(), 1)
}

func TestSubmitAfterTerminalAcknowledgesImplicitly(t *testing.T) {
	c := &fakeClient{resp: errResp(errors.New("boom"))}
	l := newLifecycle(c, &fakeSaver{}, nil)
	l.SetPrompt("x")

	st, _ := l.Submit(context.Background())
	require.IsType(t, Failed{}, st)

	c.resp = jsonResp(map[string]any{})
	st, err := l.Submit(context.Background())
	require.NoError(t, err)
	assert.IsType(t, Succeeded{}, st)
	assert.Len(t, c.Calls(), 2)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "succeeded(downloaded)", Succeeded{Outcome: OutcomeDownloaded}.String())
	assert.True(t, IsTerminal(Failed{}))
	assert.False(t, IsTerminal(InFlight{}))
}
