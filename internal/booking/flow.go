// Package booking implements the patron booking flow: sign in, confirm the
// terms, submit one booking per asset group and report per-item results.
//
// The flow is an explicit state value.  Machine.Update applies one event to
// a Flow and returns the next Flow, so every transition can be tested
// without an HTTP layer.
package booking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/faylib/equipment-calendar/internal/config"
	"github.com/faylib/equipment-calendar/internal/model"
)

// Step is the current state of a booking flow.
type Step string

const (
	StepLogin   Step = "login"
	StepConfirm Step = "confirm"
	StepSuccess Step = "success" // terminal
)

// User-facing messages.
const (
	MsgInvalidCredentials = "Invalid library card or PIN."
	MsgConnectFailed      = "Failed to connect to library system."
	MsgAgreeTerms         = "Please agree to the required terms."
	MsgBookingFailed      = "Failed"
	MsgUseLimitReached    = "Booking failed. Use Limit Reached: You may only have one active 3D printer reservation at a time."
)

// codeNoLongerAvailable is the upstream message code rewritten to
// MsgUseLimitReached.
const codeNoLongerAvailable = "assets.booking.nolongeravailable"

// ErrInvalidTransition is returned when an event does not apply to the
// current step.  The flow is returned unchanged.
var ErrInvalidTransition = errors.New("event not allowed in current step")

// Flow is the state of one patron's booking dialog for one date and hour.
// A non-empty ErrorMsg in login or confirm is the error sub-state: the flow
// stays where it is until the patron resubmits.
type Flow struct {
	Step     Step                  `json:"step"`
	Date     string                `json:"date"`
	Hour     int                   `json:"hour"`
	Groups   []model.BookingGroup  `json:"groups"`
	Patron   *model.Patron         `json:"patron,omitempty"`
	ErrorMsg string                `json:"errorMsg,omitempty"`
	Results  []model.BookingResult `json:"results,omitempty"`
}

// NewFlow opens a flow in the login step.
func NewFlow(date string, hour int, groups []model.BookingGroup) Flow {
	return Flow{Step: StepLogin, Date: date, Hour: hour, Groups: groups}
}

// Failed reports whether the flow is in the error sub-state.
func (f Flow) Failed() bool {
	return f.ErrorMsg != "" && f.Step != StepSuccess
}

// Event is an input to the flow.
type Event interface {
	isEvent()
}

// LoginSubmitted carries the patron's library card barcode and PIN.
type LoginSubmitted struct {
	Barcode string
	PIN     string
}

// ConfirmSubmitted carries the two consent checkboxes.
type ConfirmSubmitted struct {
	AgreedCost     bool
	AgreedTraining bool
}

func (LoginSubmitted) isEvent()   {}
func (ConfirmSubmitted) isEvent() {}

// PatronLookup signs a patron in upstream.  status is the HTTP status of a
// response that was obtained; err is set only when no usable response was.
type PatronLookup interface {
	SignIn(ctx context.Context, barcode, pin string) (resp *model.PatronResponse, status int, err error)
}

// Booker submits one booking upstream, with the same status/err split as
// PatronLookup.
type Booker interface {
	Book(ctx context.Context, req model.BookingRequest) (resp *model.BookingResponse, status int, err error)
}

// OutcomePublisher receives one notification per settled booking item.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, flow Flow, result model.BookingResult) error
}

// Machine applies events to flows using the upstream collaborators.
type Machine struct {
	patrons   PatronLookup
	booker    Booker
	cfg       config.BookingConfig
	publisher OutcomePublisher
	logger    *zap.Logger
}

// NewMachine wires a Machine.  publisher may be nil.
func NewMachine(patrons PatronLookup, booker Booker, cfg config.BookingConfig, publisher OutcomePublisher, logger *zap.Logger) *Machine {
	if patrons == nil || booker == nil {
		panic("nil collaborator passed to NewMachine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{patrons: patrons, booker: booker, cfg: cfg, publisher: publisher, logger: logger}
}

// Update applies ev to f.  Domain failures (bad credentials, missing
// consent, rejected bookings) are recorded in the returned flow; the error
// is reserved for events that do not belong to the current step.
func (m *Machine) Update(ctx context.Context, f Flow, ev Event) (Flow, error) {
	switch e := ev.(type) {
	case LoginSubmitted:
		if f.Step != StepLogin {
			return f, fmt.Errorf("%w: login in step %s", ErrInvalidTransition, f.Step)
		}
		return m.login(ctx, f, e), nil
	case ConfirmSubmitted:
		if f.Step != StepConfirm {
			return f, fmt.Errorf("%w: confirm in step %s", ErrInvalidTransition, f.Step)
		}
		return m.confirm(ctx, f, e), nil
	default:
		return f, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}
}

func (m *Machine) login(ctx context.Context, f Flow, e LoginSubmitted) Flow {
	f.ErrorMsg = ""
	resp, status, err := m.patrons.SignIn(ctx, e.Barcode, e.PIN)
	if err != nil {
		m.logger.Warn("patron sign-in failed", zap.Int("status", status), zap.Error(err))
		f.ErrorMsg = MsgConnectFailed
		return f
	}
	if ok, msg := signInAccepted(resp, status); !ok {
		f.ErrorMsg = msg
		return f
	}
	p := model.PatronFrom(e.Barcode, resp.Data)
	f.Patron = &p
	f.Step = StepConfirm
	return f
}

// signInAccepted applies the sign-in success rule and picks the message to
// show on failure: the error field, then the block message, then a generic
// one.
func signInAccepted(resp *model.PatronResponse, status int) (bool, string) {
	var block *model.BlockData
	if resp.Data != nil {
		block = resp.Data.BlockData
	}
	if statusOK(status) && !resp.HasError() && resp.Data != nil && (block == nil || block.Result == "ok") {
		return true, ""
	}
	if msg := resp.ErrorMessage(); msg != "" {
		return false, msg
	}
	if block != nil && block.Message != "" {
		return false, block.Message
	}
	return false, MsgInvalidCredentials
}

func (m *Machine) confirm(ctx context.Context, f Flow, e ConfirmSubmitted) Flow {
	if !e.AgreedCost || !e.AgreedTraining {
		f.ErrorMsg = MsgAgreeTerms
		return f
	}
	results := m.submitAll(ctx, f, e)
	f.Results = results
	f.ErrorMsg = ""
	f.Step = StepSuccess
	return f
}

func statusOK(code int) bool {
	return code >= 200 && code < 300
}
