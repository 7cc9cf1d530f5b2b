package signup

import (
	"context"
	"errors"
	"strings"
	"sync"

	"text2ppt/internal/logging"
	"text2ppt/internal/otp"
	"text2ppt/internal/service"
	"text2ppt/internal/session"
)

// Registrar creates accounts.
type Registrar interface {
	SignUp(ctx context.Context, r service.SignUpRequest) error
}

// Authenticator checks credentials.
type Authenticator interface {
	SignIn(ctx context.Context, username, password string) (service.Profile, error)
}

// Step is where a sign-up stands.
type Step int

const (
	StepEditing Step = iota
	StepVerifyingMobile
	StepDone
)

// ErrNeedsVerification is returned by Submit when the mobile number has
// not been verified yet; the OTP widget should be shown.
var ErrNeedsVerification = errors.New("mobile number needs verification")

// Flow is one sign-up attempt. The mobile number must pass OTP
// verification before the account is created; the verified number is the
// one sent.
type Flow struct {
	registrar Registrar

	mu             sync.Mutex
	form           Form
	step           Step
	verifiedMobile string
	errs           FieldErrors
}

// NewFlow creates a Flow.
func NewFlow(r Registrar) *Flow {
	return &Flow{registrar: r, errs: FieldErrors{}}
}

// SetForm replaces the form. Editing a field clears its error. Changing
// the mobile number after verification voids the verification.
func (f *Flow) SetForm(form Form) {
	f.mu.Lock()
	defer f.mu.Unlock()

	old := f.form
	for field, changed := range map[Field]bool{
		FieldFullName:        old.FullName != form.FullName,
		FieldUsername:        old.Username != form.Username,
		FieldEmail:           old.Email != form.Email,
		FieldMobile:          old.Mobile != form.Mobile,
		FieldPassword:        old.Password != form.Password,
		FieldConfirmPassword: old.ConfirmPassword != form.ConfirmPassword,
	} {
		if changed {
			delete(f.errs, field)
		}
	}
	if f.verifiedMobile != "" && NormalizeMobile(form.Mobile) != NormalizeMobile(f.verifiedMobile) {
		f.verifiedMobile = ""
	}
	f.form = form
}

// Form returns the current form.
func (f *Flow) Form() Form {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// Step returns the current step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Errors returns a copy of the current field errors.
func (f *Flow) Errors() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs.clone()
}

// MobileVerified reports whether OTP verification succeeded.
func (f *Flow) MobileVerified() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifiedMobile != ""
}

// Submit validates the form. An unverified mobile moves to
// StepVerifyingMobile and returns ErrNeedsVerification; otherwise the
// account is created.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if err := f.form.Validate(); err != nil {
		fe, _ := AsFieldErrors(err)
		f.errs = fe.clone()
		f.mu.Unlock()
		return err
	}
	f.errs = FieldErrors{}
	if f.verifiedMobile == "" {
		f.step = StepVerifyingMobile
		f.mu.Unlock()
		return ErrNeedsVerification
	}
	req := service.SignUpRequest{
		FullName:        f.form.FullName,
		Username:        f.form.Username,
		Email:           f.form.Email,
		Mobile:          f.verifiedMobile,
		Password:        f.form.Password,
		ConfirmPassword: f.form.ConfirmPassword,
	}
	f.mu.Unlock()

	err := f.registrar.SignUp(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		logging.Get(logging.CategorySession).Warnw("signup failed", "user", req.Username, "error", err)
		f.errs = FieldErrors{FieldGeneral: MsgSignupFailed}
		logging.Audit().Identity(logging.AuditSignUp, req.Username, false)
		return f.errs.clone()
	}
	f.step = StepDone
	logging.Session("signed up %s", req.Username)
	logging.Audit().Identity(logging.AuditSignUp, req.Username, true)
	return nil
}

// HandleOTP consumes a widget event.
func (f *Flow) HandleOTP(ev otp.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch ev.Stage {
	case otp.StageSubmitted:
		logging.Get(logging.CategorySession).Debugw("otp submitted")
	case otp.StageVerified:
		f.verifiedMobile = ev.Mobile
		f.form.Mobile = ev.Mobile
		delete(f.errs, FieldMobile)
		if f.step == StepVerifyingMobile {
			f.step = StepEditing
		}
	case otp.StageError:
		msg := ev.Error
		if strings.TrimSpace(msg) == "" {
			msg = MsgOTPFailed
		}
		f.errs = FieldErrors{FieldMobile: msg}
	}
}

// CancelVerification closes the OTP widget without verifying.
func (f *Flow) CancelVerification() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step == StepVerifyingMobile {
		f.step = StepEditing
	}
}

// Login validates the sign-in form, checks the credentials and, on
// success, stores the identity in sess. Every rejection is reported as
// MsgInvalidLogin.
func Login(ctx context.Context, auth Authenticator, sess *session.Session, username, password string) (session.Identity, error) {
	if err := ValidateLogin(username, password); err != nil {
		return session.Identity{}, err
	}

	p, err := auth.SignIn(ctx, username, password)
	if err != nil {
		logging.Get(logging.CategorySession).Warnw("sign-in rejected", "user", username, "error", err)
		return session.Identity{}, errors.New(MsgInvalidLogin)
	}

	id := session.Identity{
		Username: username,
		FullName: p.FullName,
		Email:    p.Email,
		Mobile:   p.Mobile,
	}
	if err := sess.Set(ctx, id); err != nil {
		return session.Identity{}, err
	}
	return id, nil
}
