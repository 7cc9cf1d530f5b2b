package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"text2ppt/cmd/text2ppt/tui"
	"text2ppt/cmd/text2ppt/ui"
	"text2ppt/internal/attach"
	"text2ppt/internal/config"
	"text2ppt/internal/download"
	"text2ppt/internal/generate"
	"text2ppt/internal/history"
	"text2ppt/internal/otp"
	"text2ppt/internal/service"
	"text2ppt/internal/session"
)

// app holds the collaborators every command shares.
type app struct {
	cfg       *config.Config
	client    *service.Client
	store     *session.Store
	session   *session.Session
	lifecycle *generate.Lifecycle
	history   *history.Fetcher
	otp       otp.Widget
}

// newApp opens the store, restores the identity and wires the generation
// lifecycle. outDir overrides download.directory when set.
func newApp(ctx context.Context, c *config.Config, outDir string) (*app, error) {
	store, err := session.OpenStore(c.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	sess := session.New(store)
	if err := sess.Init(ctx); err != nil {
		logger.Warn("Failed to restore session", zap.Error(err))
	}

	client := service.New(service.Config{
		BaseURL:      c.Service.BaseURL,
		GeneratePath: c.Service.GeneratePath,
		SignInPath:   c.Service.SignInPath,
		SignUpPath:   c.Service.SignUpPath,
		HistoryPath:  c.Service.HistoryPath,
		Timeout:      c.GetServiceTimeout(),
	})

	staging := attach.NewSet(attach.Limits{
		MaxDocumentBytes:   c.Limits.MaxDocumentBytes,
		MaxImageBytes:      c.Limits.MaxImageBytes,
		DocumentExtensions: c.Limits.DocumentExtensions,
	})

	dir := c.Download.Directory
	if outDir != "" {
		dir = outDir
	}

	a := &app{
		cfg:       c,
		client:    client,
		store:     store,
		session:   sess,
		lifecycle: generate.New(client, download.New(dir), sess, staging, generate.WithFileName(c.Download.FileName)),
		history:   history.NewFetcher(client),
	}
	if c.OTP.Endpoint != "" {
		a.otp = otp.NewHTTPWidget(c.OTP.Endpoint, c.OTP.SecretKey, c.GetOTPTimeout())
	}

	logger.Debug("App initialized",
		zap.String("service", client.BaseURL()),
		zap.String("store", store.Path()),
		zap.String("download_dir", dir))
	return a, nil
}

// Close releases the store.
func (a *app) Close() error {
	return a.store.Close()
}

// runTUI runs the interactive program. prepare, if non-nil, adjusts the
// initial model (e.g. to open a deck or the login page).
func runTUI(ctx context.Context, a *app, prepare func(tui.Model) tui.Model) error {
	if a.cfg.Storage.Watch {
		w, err := session.NewWatcher(a.store.Path(), a.session)
		if err != nil {
			logger.Warn("Session watcher unavailable", zap.Error(err))
		} else if err := w.Start(ctx); err != nil {
			logger.Warn("Session watcher failed to start", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	deps := tui.Deps{
		Lifecycle: a.lifecycle,
		Session:   a.session,
		History:   a.history,
		Auth:      a.client,
		Registrar: a.client,
		OTP:       a.otp,
		Styles:    ui.NewStyles(ui.ThemeFor(a.cfg.UI.Theme)),
		Context:   ctx,
	}
	m := tui.New(deps)
	if prepare != nil {
		m = prepare(m)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	a.session.OnChange(func(id session.Identity, signedIn bool) {
		p.Send(tui.SessionChangedMsg{Identity: id, SignedIn: signedIn})
	})

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("interactive session failed: %w", err)
	}
	return nil
}
