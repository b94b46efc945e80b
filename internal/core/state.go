package core

import (
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

// State is a step of the payment flow.
type State string

const (
	StateIdle              State = "IDLE"
	StateProviderSelected  State = "PROVIDER_SELECTED"
	StateValidating        State = "VALIDATING"
	StateOnboardingPending State = "ONBOARDING_PENDING"
	StateRequestCreating   State = "REQUEST_CREATING"
	StateRequestCreated    State = "REQUEST_CREATED"
	StateAppOpened         State = "APP_OPENED"
	StatePDFShared         State = "PDF_SHARED"
	StateInstallRequired   State = "INSTALL_REQUIRED"
	StateError             State = "ERROR"
)

// transitions lists the allowed moves. Error is reachable from everywhere
// and is not listed.
var transitions = map[State][]State{
	StateIdle:              {StateProviderSelected},
	StateProviderSelected:  {StateProviderSelected, StateValidating},
	StateValidating:        {StateOnboardingPending, StateRequestCreating},
	StateOnboardingPending: {StateRequestCreating, StateProviderSelected, StateValidating},
	StateRequestCreating:   {StateRequestCreated},
	StateRequestCreated:    {StateAppOpened, StatePDFShared, StateInstallRequired},
	StateInstallRequired:   {StateRequestCreated, StateProviderSelected, StateValidating},
	StateAppOpened:         {StateProviderSelected, StateValidating},
	StatePDFShared:         {StateProviderSelected, StateValidating},
	StateError:             {StateProviderSelected, StateValidating, StateRequestCreating, StateRequestCreated},
}

func canTransition(from, to State) bool {
	if to == StateError {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// EventType names what happened.
type EventType string

const (
	EventProviderSelected   EventType = "PROVIDER_SELECTED"
	EventStateChanged       EventType = "STATE_CHANGED"
	EventOnboardingRequired EventType = "ONBOARDING_REQUIRED"
	EventRequestCreated     EventType = "REQUEST_CREATED"
	EventAppOpened          EventType = "APP_OPENED"
	EventPDFShared          EventType = "PDF_SHARED"
	EventInstallRequired    EventType = "INSTALL_REQUIRED"
	EventError              EventType = "ERROR"
)

// Event is delivered to subscribers in the order it happened.
type Event struct {
	Type      EventType
	State     State
	Previous  State
	Provider  *entity.PaymentProvider
	RequestID string
	Outcome   *Outcome
	Err       error
	At        time.Time
}

// Handler receives events. It must not block for long; it may call back into
// the orchestrator.
type Handler func(Event)

// Outcome describes how a created payment request was handed off.
type Outcome struct {
	Kind      constants.RequestOutcome
	RequestID string
	Provider  entity.PaymentProvider
	Info      entity.PaymentInfo
	// DeepLink and Opened are set for app hand-offs. Opened is false when
	// the platform declined to open the link.
	DeepLink string
	Opened   bool
	// Artifact is set for PDF hand-offs.
	Artifact *entity.Artifact
}
