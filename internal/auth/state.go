package auth

import (
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/account"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/classifier"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

type State string

const (
	StateStart                                State = "Start"
	StateHasSessionCookie                     State = "HasSessionCookie"
	StateNoSessionCookie                      State = "NoSessionCookie"
	StateFingerprintAbsentFromAccount         State = "FingerprintAbsentFromAccount"
	StateFingerprintCheckDeferredToClassifier State = "FingerprintCheckDeferredToClassifier"
	StateCredentialLoginRequired              State = "CredentialLoginRequired"

	StateAuthenticated            State = "Authenticated"
	StateDenied                   State = "Denied"
	StateClassifiedLegitimate     State = "ClassifiedLegitimate"
	StateClassifiedSessionStealer State = "ClassifiedSessionStealer"
	StateServerError              State = "ServerError"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case StateAuthenticated, StateDenied, StateClassifiedLegitimate,
		StateClassifiedSessionStealer, StateServerError:
		return true
	}
	return false
}

// Decision is the outcome of one flow. Path lists every state visited, the
// terminal one last.
type Decision struct {
	State State
	Path  []State

	Account *account.Account
	// Token is the session token the cookie must carry, set when the flow
	// authenticated by credentials.
	Token string

	// Verdict is set when the classifier was consulted.
	Verdict *classifier.Verdict
	// Enrolled reports whether the presented fingerprint was appended.
	Enrolled bool
	// ForceLogout tells the client to drop its session.
	ForceLogout bool
}

func newDecision() *Decision {
	return &Decision{State: StateStart, Path: []State{StateStart}}
}

func (d *Decision) visit(s State) {
	d.State = s
	d.Path = append(d.Path, s)
}

// Fingerprints is the account's enrolled set, or nil.
func (d *Decision) Fingerprints() fingerprint.Set {
	if d.Account == nil {
		return nil
	}
	return d.Account.Fingerprints
}
