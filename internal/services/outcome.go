package services

import "strings"

// OutcomeKind enumerates the terminal results of an MMS request.
type OutcomeKind int

const (
	OutcomeAccepted OutcomeKind = iota
	OutcomeUnauthorized
	OutcomeInvalidInput
	OutcomeQuotaExceeded
	OutcomeGenerationFailed
	OutcomeDeliveryFailed
	OutcomeInternal
)

var kindNames = map[OutcomeKind]string{
	OutcomeAccepted:         "accepted",
	OutcomeUnauthorized:     "unauthorized",
	OutcomeInvalidInput:     "invalid_input",
	OutcomeQuotaExceeded:    "quota_exceeded",
	OutcomeGenerationFailed: "generation_failed",
	OutcomeDeliveryFailed:   "delivery_failed",
	OutcomeInternal:         "internal",
}

// InvalidReason qualifies OutcomeInvalidInput.
type InvalidReason string

const (
	ReasonEmpty   InvalidReason = "empty"
	ReasonTooLong InvalidReason = "too_long"
)

// QuotaScope qualifies OutcomeQuotaExceeded.
type QuotaScope string

const (
	ScopeUser   QuotaScope = "user"
	ScopeGlobal QuotaScope = "global"
)

// Outcome is the result of MMSService.Submit. Reason is set only for
// InvalidInput and Scope only for QuotaExceeded. HistoryID names the record
// written for the attempt, when one was written.
type Outcome struct {
	Kind      OutcomeKind
	Reason    InvalidReason
	Scope     QuotaScope
	HistoryID string
}

// Constructors keep the qualifier fields consistent with Kind.

func Accepted(historyID string) Outcome { return Outcome{Kind: OutcomeAccepted, HistoryID: historyID} }
func Unauthorized() Outcome             { return Outcome{Kind: OutcomeUnauthorized} }
func InvalidInput(r InvalidReason) Outcome {
	return Outcome{Kind: OutcomeInvalidInput, Reason: r}
}
func QuotaExceeded(s QuotaScope) Outcome { return Outcome{Kind: OutcomeQuotaExceeded, Scope: s} }
func GenerationFailed(historyID string) Outcome {
	return Outcome{Kind: OutcomeGenerationFailed, HistoryID: historyID}
}
func DeliveryFailed(historyID string) Outcome {
	return Outcome{Kind: OutcomeDeliveryFailed, HistoryID: historyID}
}
func Internal() Outcome { return Outcome{Kind: OutcomeInternal} }

// String is a stable label such as "quota_exceeded:user". It is used as a
// metrics label and as the persisted form for idempotent replays.
func (o Outcome) String() string {
	name := kindNames[o.Kind]
	switch o.Kind {
	case OutcomeInvalidInput:
		return name + ":" + string(o.Reason)
	case OutcomeQuotaExceeded:
		return name + ":" + string(o.Scope)
	}
	return name
}

// ParseOutcome is the inverse of String. HistoryID is not part of the label.
func ParseOutcome(s string) (Outcome, bool) {
	name, qual, _ := strings.Cut(s, ":")
	for k, n := range kindNames {
		if n != name {
			continue
		}
		switch k {
		case OutcomeInvalidInput:
			r := InvalidReason(qual)
			if r != ReasonEmpty && r != ReasonTooLong {
				return Outcome{}, false
			}
			return InvalidInput(r), true
		case OutcomeQuotaExceeded:
			sc := QuotaScope(qual)
			if sc != ScopeUser && sc != ScopeGlobal {
				return Outcome{}, false
			}
			return QuotaExceeded(sc), true
		}
		if qual != "" {
			return Outcome{}, false
		}
		return Outcome{Kind: k}, true
	}
	return Outcome{}, false
}

// Replayable reports whether the outcome may be stored for idempotent
// retries. Unauthorized and Internal results are never stored so that a
// retry gets a fresh attempt.
func (o Outcome) Replayable() bool {
	return o.Kind != OutcomeUnauthorized && o.Kind != OutcomeInternal
}
