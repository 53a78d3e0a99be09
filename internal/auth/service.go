// Package auth sequences the authentication flows: session continuity,
// credential login, signup and logout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/account"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/classifier"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/logger"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/metrics"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/session"
)

const (
	opContinue = "continue"
	opLogin    = "login"
	opSignup   = "signup"
)

// Classifier judges a structured fingerprint that is not enrolled.
type Classifier interface {
	Predict(ctx context.Context, presented fingerprint.Fingerprint, known fingerprint.Set) classifier.Verdict
}

// Enroller appends a fingerprint to an account's set.
type Enroller interface {
	Enroll(ctx context.Context, accountID string, fp fingerprint.Fingerprint) (bool, error)
}

type Service struct {
	accounts   account.Store
	enroller   Enroller
	classifier Classifier
	sessions   session.Store
	log        *logger.Logger
	metrics    *metrics.Metrics
	sessionTTL time.Duration

	newToken func() (string, error)
	now      func() time.Time
}

type Option func(*Service)

// WithSessionCache puts a binding cache in front of token lookups.
func WithSessionCache(store session.Store) Option {
	return func(s *Service) { s.sessions = store }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

func NewService(
	accounts account.Store,
	enroller Enroller,
	clf Classifier,
	log *logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		accounts:   accounts,
		enroller:   enroller,
		classifier: clf,
		log:        log,
		sessionTTL: session.DefaultMaxAge,
		newToken:   session.NewToken,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ContinueRequest struct {
	Token       string
	Fingerprint fingerprint.Fingerprint
	// AccountFingerprint is the baseline the client claims; zero when absent.
	AccountFingerprint fingerprint.Fingerprint
}

type LoginRequest struct {
	Token       string
	Email       string
	Password    string
	Fingerprint fingerprint.Fingerprint
}

type SignupRequest struct {
	Email       string
	Username    string
	Password    string
	Fingerprint fingerprint.Fingerprint
}

// Continue verifies that the fingerprint presented with a session cookie is
// one the account already knows, and escalates unknown structured
// fingerprints to the classifier.
func (s *Service) Continue(ctx context.Context, req ContinueRequest) (Decision, error) {
	d := newDecision()

	if req.Token == "" {
		d.visit(StateNoSessionCookie)
		return s.finish(opContinue, d, StateDenied, ErrInvalidSession)
	}
	d.visit(StateHasSessionCookie)

	if req.Fingerprint.IsZero() {
		return s.finish(opContinue, d, StateDenied, ErrMissingFingerprint)
	}

	acct, err := s.resolve(ctx, req.Token)
	if errors.Is(err, account.ErrNotFound) {
		return s.finish(opContinue, d, StateDenied, ErrInvalidSession)
	}
	if err != nil {
		return s.finish(opContinue, d, StateServerError, err)
	}

	return s.continueFor(ctx, d, acct, req)
}

func (s *Service) continueFor(ctx context.Context, d *Decision, acct *account.Account, req ContinueRequest) (Decision, error) {
	d.Account = acct

	if len(acct.Fingerprints) == 0 {
		d.visit(StateFingerprintAbsentFromAccount)
		return s.finish(opContinue, d, StateDenied, ErrNoFingerprints)
	}

	if acct.Fingerprints.Contains(req.Fingerprint) {
		return s.finish(opContinue, d, StateAuthenticated, nil)
	}
	d.visit(StateFingerprintAbsentFromAccount)

	// Legacy signals are compared exactly; only descriptors can be judged by
	// similarity.
	if req.Fingerprint.IsLegacy() {
		return s.finish(opContinue, d, StateDenied, ErrFingerprintMismatch)
	}

	known := acct.Fingerprints.Structured()
	if !req.AccountFingerprint.IsZero() {
		if !acct.Fingerprints.Contains(req.AccountFingerprint) {
			return s.finish(opContinue, d, StateDenied, ErrFingerprintMismatch)
		}
		known = fingerprint.Set{req.AccountFingerprint}
	}
	if len(known) == 0 {
		return s.finish(opContinue, d, StateDenied, ErrFingerprintMismatch)
	}

	d.visit(StateFingerprintCheckDeferredToClassifier)
	verdict := s.classifier.Predict(ctx, req.Fingerprint, known)
	d.Verdict = &verdict
	s.metrics.ClassifierCall(verdict.Label())

	if verdict.Failed() {
		s.log.Warn("classifier unavailable", map[string]any{
			"account_id": acct.ID,
			"diagnostic": verdict.Diagnostic.Kind.String(),
			"details":    verdict.Diagnostic.Details,
		})
		return s.finish(opContinue, d, StateDenied, nil)
	}

	switch verdict.Outcome {
	case classifier.OutcomeLegitimateChange:
		// a client that went away before the verdict leaves the record as it was
		if ctx.Err() == nil {
			d.Enrolled = s.enroll(ctx, acct, req.Fingerprint)
		}
		return s.finish(opContinue, d, StateClassifiedLegitimate, nil)
	case classifier.OutcomeSessionStealer:
		d.ForceLogout = true
		s.log.Warn("session stealer detected", map[string]any{
			"account_id": acct.ID,
		})
		return s.finish(opContinue, d, StateClassifiedSessionStealer, nil)
	default:
		return s.finish(opContinue, d, StateDenied, nil)
	}
}

// Login authenticates by email and password digest. A request that also
// carries a session cookie resolving to an account is treated as a
// continuity check and its credentials are ignored.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Decision, error) {
	d := newDecision()

	if req.Token != "" {
		acct, err := s.resolve(ctx, req.Token)
		switch {
		case err == nil:
			d.visit(StateHasSessionCookie)
			d.Token = req.Token
			if req.Fingerprint.IsZero() {
				return s.finish(opContinue, d, StateDenied, ErrMissingFingerprint)
			}
			return s.continueFor(ctx, d, acct, ContinueRequest{Token: req.Token, Fingerprint: req.Fingerprint})
		case !errors.Is(err, account.ErrNotFound):
			return s.finish(opLogin, d, StateServerError, err)
		}
	}

	d.visit(StateNoSessionCookie)
	d.visit(StateCredentialLoginRequired)

	if req.Email == "" || req.Password == "" {
		return s.finish(opLogin, d, StateDenied, ErrMissingCredentials)
	}
	if req.Fingerprint.IsZero() {
		return s.finish(opLogin, d, StateDenied, ErrMissingFingerprint)
	}

	acct, err := s.accounts.GetByEmail(ctx, req.Email)
	if errors.Is(err, account.ErrNotFound) {
		return s.finish(opLogin, d, StateDenied, ErrInvalidCredentials)
	}
	if err != nil {
		return s.finish(opLogin, d, StateServerError, err)
	}
	if !account.VerifyDigest(acct.PasswordDigest, req.Password) {
		return s.finish(opLogin, d, StateDenied, ErrInvalidCredentials)
	}
	d.Account = acct

	if !acct.Fingerprints.Contains(req.Fingerprint) {
		d.Enrolled = s.enroll(ctx, acct, req.Fingerprint)
	}

	token := acct.SessionToken
	if token == "" {
		if token, err = s.newToken(); err != nil {
			return s.finish(opLogin, d, StateServerError, err)
		}
		if err := s.accounts.UpdateSessionToken(ctx, acct.ID, token); err != nil {
			return s.finish(opLogin, d, StateServerError, err)
		}
		acct.SessionToken = token
	}
	d.Token = token
	s.cacheBinding(ctx, token, acct.ID)

	return s.finish(opLogin, d, StateAuthenticated, nil)
}

// Signup creates an account enrolled with the presented fingerprint and a
// fresh session token.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (Decision, error) {
	d := newDecision()

	if req.Email == "" || req.Username == "" || req.Password == "" || req.Fingerprint.IsZero() {
		return s.finish(opSignup, d, StateDenied, ErrMissingFields)
	}

	_, err := s.accounts.GetByEmail(ctx, req.Email)
	if err == nil {
		return s.finish(opSignup, d, StateDenied, ErrAccountExists)
	}
	if !errors.Is(err, account.ErrNotFound) {
		return s.finish(opSignup, d, StateServerError, err)
	}

	wrapped, err := account.HashDigest(req.Password)
	if err != nil {
		return s.finish(opSignup, d, StateServerError, err)
	}
	token, err := s.newToken()
	if err != nil {
		return s.finish(opSignup, d, StateServerError, err)
	}

	acct := &account.Account{
		ID:             uuid.NewString(),
		Email:          req.Email,
		Username:       req.Username,
		PasswordDigest: wrapped,
		SessionToken:   token,
		Fingerprints:   fingerprint.Set{req.Fingerprint},
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, account.ErrAccountExists) {
			return s.finish(opSignup, d, StateDenied, ErrAccountExists)
		}
		return s.finish(opSignup, d, StateServerError, err)
	}

	d.Account = acct
	d.Token = token
	d.Enrolled = true
	s.cacheBinding(ctx, token, acct.ID)

	return s.finish(opSignup, d, StateAuthenticated, nil)
}

// Logout forgets the cached binding. The account keeps its token and
// fingerprints; clearing the cookie is the caller's job.
func (s *Service) Logout(ctx context.Context, token string) {
	if s.sessions == nil || token == "" {
		return
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		s.log.Warn("drop session binding failed", map[string]any{"error": err.Error()})
	}
}

// Account returns the account the session token belongs to.
func (s *Service) Account(ctx context.Context, token string) (*account.Account, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	acct, err := s.resolve(ctx, token)
	if errors.Is(err, account.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	return acct, err
}

// resolve maps a token to its account, consulting the binding cache first.
// The account record stays authoritative: a cached binding whose account no
// longer carries the token is discarded.
func (s *Service) resolve(ctx context.Context, token string) (*account.Account, error) {
	if s.sessions != nil {
		b, err := s.sessions.Get(ctx, token)
		if err != nil {
			s.log.Warn("session cache lookup failed", map[string]any{"error": err.Error()})
		}
		if b != nil {
			acct, err := s.accounts.GetByID(ctx, b.AccountID)
			if err == nil && acct.SessionToken == token {
				return acct, nil
			}
			if err != nil && !errors.Is(err, account.ErrNotFound) {
				return nil, err
			}
			_ = s.sessions.Delete(ctx, token)
		}
	}

	acct, err := s.accounts.GetBySessionToken(ctx, token)
	if err != nil {
		return nil, err
	}
	s.cacheBinding(ctx, token, acct.ID)
	return acct, nil
}

func (s *Service) cacheBinding(ctx context.Context, token, accountID string) {
	if s.sessions == nil {
		return
	}
	err := s.sessions.Put(ctx, session.Binding{
		Token:     token,
		AccountID: accountID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	})
	if err != nil {
		s.log.Warn("cache session binding failed", map[string]any{"error": err.Error()})
	}
}

// enroll is best effort: a failure is logged and the flow continues.
func (s *Service) enroll(ctx context.Context, acct *account.Account, fp fingerprint.Fingerprint) bool {
	added, err := s.enroller.Enroll(ctx, acct.ID, fp)
	if err != nil {
		s.metrics.Enrollment("failed")
		s.log.Error("fingerprint enrollment failed", map[string]any{
			"account_id": acct.ID,
			"error":      err.Error(),
		})
		return false
	}
	if !added {
		s.metrics.Enrollment("present")
		return false
	}

	s.metrics.Enrollment("added")
	acct.Fingerprints = append(acct.Fingerprints.Clone(), fp)
	return true
}

func (s *Service) finish(op string, d *Decision, terminal State, err error) (Decision, error) {
	d.visit(terminal)
	s.metrics.Decision(op, string(terminal))

	fields := map[string]any{
		"operation": op,
		"state":     string(terminal),
	}
	if d.Account != nil {
		fields["account_id"] = d.Account.ID
	}

	switch {
	case terminal == StateServerError:
		fields["error"] = err.Error()
		s.log.Error("auth flow failed", fields)
		err = fmt.Errorf("auth: %s: %w", op, err)
	case err != nil:
		fields["reason"] = err.Error()
		s.log.Info("auth denied", fields)
	default:
		s.log.Debug("auth decision", fields)
	}
	return *d, err
}
