package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"text2ppt/internal/config"
)

// captureOutput redirects stdout/stderr while fn runs.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		_, _ = io.Copy(&buf, rErr)
		done <- buf.String()
	}()

	fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = origOut
	os.Stderr = origErr
	return <-done
}

// setup points the commands at srv with a private store and download dir.
func setup(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	dir := t.TempDir()

	logger = zap.NewNop()
	cfg = config.DefaultConfig()
	cfg.Storage.DatabasePath = filepath.Join(dir, "text2ppt.db")
	cfg.Storage.Watch = false
	cfg.Download.Directory = dir
	if srv != nil {
		cfg.Service.BaseURL = srv.URL
	}

	genDoc, genImages, genReference = "", nil, ""
	genEmail, genOutDir, genSaveDeck = false, "", ""
	loginUsername, loginPassword = "", ""
	historySearch = ""
	viewPlain = false
	return dir
}

type fakeService struct {
	generate func(w http.ResponseWriter, r *http.Request)
	forms    []map[string]string
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	fs := &fakeService{}
	mux := http.NewServeMux()
	mux.HandleFunc("/generate-ppt", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		form := map[string]string{}
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		fs.forms = append(fs.forms, form)
		fs.generate(w, r)
	})
	mux.HandleFunc("/signin", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 16)
		if r.FormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"fullName": "Alice A", "email": "alice@example.com"})
	})
	mux.HandleFunc("/user-history/alice", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"history":["Quarterly review","Team offsite plan"]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fs, srv
}

func jsonReply(payload any) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}
}

var quarterlyDeck = map[string]any{
	"presentationTitle": "Quarterly Review",
	"slides": []map[string]any{
		{"title": "Revenue", "content": "Up 12%\nAhead of plan"},
		{"title": "Hiring", "content": "Four new engineers", "backgroundImage": "https://img.example/hire.png"},
	},
}

func TestGenerate_PrintsAndSavesDeck(t *testing.T) {
	fs, srv := newFakeService(t)
	dir := setup(t, srv)
	fs.generate = jsonReply(quarterlyDeck)
	genSaveDeck = filepath.Join(dir, "deck.json")

	var err error
	out := captureOutput(t, func() {
		err = runGenerate(generateCmd, []string{"Quarterly", "review"})
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Quarterly Review (2 slides)")
	assert.Contains(t, out, "[1/2] Revenue")
	assert.Contains(t, out, "  Ahead of plan")
	assert.Contains(t, out, "(background: https://img.example/hire.png)")
	assert.Contains(t, out, "Deck saved to")

	require.Len(t, fs.forms, 1)
	assert.Equal(t, "Quarterly review", fs.forms[0]["text"])
	assert.NotContains(t, fs.forms[0], "username")

	d, err := loadDeck(genSaveDeck)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Review", d.Title)
	assert.Equal(t, 2, d.Len())

	viewPlain = true
	out = captureOutput(t, func() {
		err = viewCmd.RunE(viewCmd, []string{genSaveDeck})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "[2/2] Hiring")
}

func TestGenerate_DownloadsBinary(t *testing.T) {
	fs, srv := newFakeService(t)
	dir := setup(t, srv)
	fs.generate = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.presentationml.presentation")
		w.Write([]byte("PK\x03\x04pptx"))
	}

	var err error
	out := captureOutput(t, func() {
		err = runGenerate(generateCmd, []string{"Deck please"})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "PPT downloaded successfully!")

	data, err := os.ReadFile(filepath.Join(dir, "generated_ppt.pptx"))
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04pptx", string(data))
}

func TestGenerate_Attachments(t *testing.T) {
	fs, srv := newFakeService(t)
	dir := setup(t, srv)
	fs.generate = jsonReply(quarterlyDeck)

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("meeting notes"), 0o644))
	genDoc = notes
	genReference = "  https://example.com/report  "

	var err error
	captureOutput(t, func() {
		err = runGenerate(generateCmd, nil)
	})
	require.NoError(t, err)
	require.Len(t, fs.forms, 1)
	assert.Equal(t, "https://example.com/report", fs.forms[0]["reference"])
}

func TestGenerate_RejectsAttachment(t *testing.T) {
	fs, srv := newFakeService(t)
	dir := setup(t, srv)

	exe := filepath.Join(dir, "setup.exe")
	require.NoError(t, os.WriteFile(exe, []byte("MZ"), 0o644))
	genDoc = exe

	err := runGenerate(generateCmd, []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please select a PDF, DOCX, or TXT file.")
	assert.Empty(t, fs.forms)
}

func TestGenerate_NothingToSubmit(t *testing.T) {
	fs, srv := newFakeService(t)
	setup(t, srv)

	err := runGenerate(generateCmd, []string{"   "})
	assert.EqualError(t, err, "nothing to generate: give a prompt or attach a file")
	assert.Empty(t, fs.forms)
}

func TestGenerate_ServiceError(t *testing.T) {
	fs, srv := newFakeService(t)
	setup(t, srv)
	fs.generate = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message":"Model overloaded"}`))
	}

	err := runGenerate(generateCmd, []string{"x"})
	assert.EqualError(t, err, "Model overloaded")
}

func TestAccountCommands(t *testing.T) {
	fs, srv := newFakeService(t)
	setup(t, srv)
	fs.generate = jsonReply(map[string]any{"message": "Sent to alice@example.com"})

	loginUsername, loginPassword = "alice", "wrong"
	err := loginCmd.RunE(loginCmd, nil)
	assert.EqualError(t, err, "Invalid username or password")

	loginPassword = "secret"
	out := captureOutput(t, func() {
		err = loginCmd.RunE(loginCmd, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Alice A")

	out = captureOutput(t, func() {
		err = whoamiCmd.RunE(whoamiCmd, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Username: alice")
	assert.Contains(t, out, "Email:    alice@example.com")

	out = captureOutput(t, func() {
		err = historyCmd.RunE(historyCmd, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Quarterly review")
	assert.Contains(t, out, "Team offsite plan")

	historySearch = "OFFSITE"
	out = captureOutput(t, func() {
		err = historyCmd.RunE(historyCmd, nil)
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "Quarterly review")
	assert.Contains(t, out, "Team offsite plan")

	genEmail = true
	out = captureOutput(t, func() {
		err = runGenerate(generateCmd, []string{"Email me"})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Sent to alice@example.com")
	require.Len(t, fs.forms, 1)
	assert.Equal(t, "alice", fs.forms[0]["username"])

	out = captureOutput(t, func() {
		err = logoutCmd.RunE(logoutCmd, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out alice")

	out = captureOutput(t, func() {
		err = historyCmd.RunE(historyCmd, nil)
	})
	assert.EqualError(t, err, "please sign in to view your chat history")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	defer func() { configPath = "" }()

	configPath = filepath.Join(dir, "missing.yaml")
	c, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "auto", c.UI.Theme)

	configPath = filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ui:\n  theme: neon\n"), 0o644))
	_, err = loadConfig()
	assert.ErrorContains(t, err, "invalid ui theme")
}
