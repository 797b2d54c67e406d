package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStepIncomplete is returned by Advance when the field required by
	// the current step has not been selected yet.
	ErrStepIncomplete = errors.New("required selection missing for current step")

	// ErrWizardComplete is returned by Advance at the confirm step; the
	// caller submits the selection instead of incrementing.
	ErrWizardComplete = errors.New("wizard reached confirm step")
)

// WizardState is the in-progress booking selection. It is a value type:
// mutating methods return the next state, which makes step gating testable
// without a rendering harness. Nothing durable exists until submission.
type WizardState struct {
	HandleID   string    `json:"handle_id"`
	ClientID   int64     `json:"client_id"`
	StoreID    int64     `json:"store_id"`
	Step       string    `json:"step"`
	ServiceID  int64     `json:"service_id"`
	EmployeeID int64     `json:"employee_id"`
	Date       time.Time `json:"date"`
	Time       string    `json:"time"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewWizardState(session SessionContext, handleID string) WizardState {
	return WizardState{
		HandleID:  handleID,
		ClientID:  session.ClientID,
		StoreID:   session.StoreID,
		Step:      StepServiceSelection,
		UpdatedAt: time.Now(),
	}
}

func (s WizardState) SelectService(serviceID int64) WizardState {
	s.ServiceID = serviceID
	s.UpdatedAt = time.Now()
	return s
}

// SelectEmployee invalidates a previously chosen time: the slot grid is
// per employee and must be recomputed.
func (s WizardState) SelectEmployee(employeeID int64) WizardState {
	if employeeID != s.EmployeeID {
		s.Time = ""
	}
	s.EmployeeID = employeeID
	s.UpdatedAt = time.Now()
	return s
}

// SelectDate invalidates a previously chosen time for the same reason.
func (s WizardState) SelectDate(date time.Time) WizardState {
	if !sameDay(date, s.Date) {
		s.Time = ""
	}
	s.Date = date
	s.UpdatedAt = time.Now()
	return s
}

func (s WizardState) SelectSlot(date time.Time, hhmm string) WizardState {
	s.Date = date
	s.Time = hhmm
	s.UpdatedAt = time.Now()
	return s
}

// Advance moves to the next step once the current step's required field is
// set. At the confirm step it returns ErrWizardComplete unchanged.
func (s WizardState) Advance() (WizardState, error) {
	switch s.Step {
	case StepServiceSelection:
		if s.ServiceID == 0 {
			return s, fmt.Errorf("%w: service", ErrStepIncomplete)
		}
		s.Step = StepEmployeeSelection
	case StepEmployeeSelection:
		if s.EmployeeID == 0 {
			return s, fmt.Errorf("%w: employee", ErrStepIncomplete)
		}
		s.Step = StepDateTimeSelection
	case StepDateTimeSelection:
		if s.Time == "" || s.Date.IsZero() {
			return s, fmt.Errorf("%w: time", ErrStepIncomplete)
		}
		s.Step = StepConfirm
	case StepConfirm:
		return s, ErrWizardComplete
	default:
		return s, fmt.Errorf("unknown wizard step: %s", s.Step)
	}
	s.UpdatedAt = time.Now()
	return s, nil
}

// Retreat steps back without clearing prior choices. Downstream selections
// may go stale; submission revalidates against availability.
func (s WizardState) Retreat() WizardState {
	switch s.Step {
	case StepEmployeeSelection:
		s.Step = StepServiceSelection
	case StepDateTimeSelection:
		s.Step = StepEmployeeSelection
	case StepConfirm:
		s.Step = StepDateTimeSelection
	}
	s.UpdatedAt = time.Now()
	return s
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
