package classifier

import "encoding/json"

type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeLegitimateChange
	OutcomeSessionStealer
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLegitimateChange:
		return "legitimate_change"
	case OutcomeSessionStealer:
		return "session_stealer"
	default:
		return "unknown"
	}
}

// Result labels the model returns.
const (
	labelLegitimateChange = "Legitimate Change"
	labelSessionStealer   = "SessionStealer"
)

func outcomeFor(label string) Outcome {
	switch label {
	case labelLegitimateChange:
		return OutcomeLegitimateChange
	case labelSessionStealer:
		return OutcomeSessionStealer
	default:
		return OutcomeUnknown
	}
}

type DiagnosticKind int

const (
	// ServiceDown means the health probe failed too.
	ServiceDown DiagnosticKind = iota + 1
	// ClassificationError means the service is up but the prediction failed.
	ClassificationError
)

func (k DiagnosticKind) String() string {
	switch k {
	case ServiceDown:
		return "service_down"
	case ClassificationError:
		return "classification_error"
	default:
		return "none"
	}
}

// Diagnostic is returned to the client in place of a model result.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"-"`
	Error    string         `json:"error"`
	Details  string         `json:"details,omitempty"`
	Solution string         `json:"solution,omitempty"`
}

// Verdict is the outcome of one classification. Exactly one of Raw and
// Diagnostic is set.
type Verdict struct {
	Outcome    Outcome
	Raw        json.RawMessage
	Diagnostic *Diagnostic
}

func (v Verdict) Failed() bool { return v.Diagnostic != nil }

// MLResult is what the client sees as mlResult: the model's body verbatim,
// or the diagnostic.
func (v Verdict) MLResult() any {
	if v.Diagnostic != nil {
		return v.Diagnostic
	}
	return v.Raw
}

// Label is the outcome name for logs and metrics, or the diagnostic kind
// when the call failed.
func (v Verdict) Label() string {
	if v.Diagnostic != nil {
		return v.Diagnostic.Kind.String()
	}
	return v.Outcome.String()
}
