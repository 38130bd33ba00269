package workflow

import (
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	provision815 "github.com/luysmarlcm/provision815/structs"
)

/*
	Provisioning state machine.

	NoConnection -> ConnectionReady   full submission or explicit create
	ConnectionReady -> Provisioning   explicit operator confirmation only
	Provisioning -> Provisioned       backend reports estado OK
	Provisioning -> ProvisioningFailed anything else
	ProvisioningFailed -> Provisioning re-confirmation, same connection id

	At most one remote call is outstanding per run; a second trigger while
	one is in flight returns ErrBusy and changes nothing.
*/

// CreateConnection creates the physical connection record on its own, for
// runs where submission ended partial.  Failure leaves the run in
// NoConnection with the reason surfaced; the action is retryable.
func (e *Engine) CreateConnection(serial string) (string, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		log.Warnf("Run %v - connection create ignored, another request is in flight", e.RunID)
		return "", provision815.ErrBusy
	}
	if e.state != provision815.StateNoConnection {
		e.mu.Unlock()
		return "", &provision815.ValidationError{Reason: "run already has a connection"}
	}
	if serial == "" {
		serial = e.serial
	}
	if serial == "" {
		e.mu.Unlock()
		return "", &provision815.ValidationError{Field: "numeroDeSerie", Reason: "is required"}
	}
	if e.zone == "" {
		e.mu.Unlock()
		return "", &provision815.ValidationError{Field: "zone", Reason: "is required"}
	}
	zone := e.zone
	e.busy = true
	e.mu.Unlock()

	connectionID, err := e.backend.CreateConnection(zone, serial)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	if err != nil {
		e.lastError = err.Error()
		log.Errorf("Run %v - connection create failed - %v", e.RunID, err)
		return "", err
	}
	e.serial = serial
	e.connectionID = connectionID
	e.state = provision815.StateConnectionReady
	e.lastError = ""
	log.Infof("Run %v - connection %v created", e.RunID, connectionID)
	return connectionID, nil
}

// ConfirmProvision issues the provisioning command.  Never called
// automatically - provisioning touches live network equipment, so it always
// follows an affirmative operator confirmation.  From ProvisioningFailed a
// re-confirmation retries with the unchanged connection id; subscriber and
// connection records are never recreated here.
func (e *Engine) ConfirmProvision() (provision815.ProvisionOutcome, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		log.Warnf("Run %v - confirmation ignored, another request is in flight", e.RunID)
		return provision815.ProvisionOutcome{}, provision815.ErrBusy
	}
	switch e.state {
	case provision815.StateConnectionReady, provision815.StateProvisioningFailed:
	default:
		e.mu.Unlock()
		return provision815.ProvisionOutcome{}, &provision815.ValidationError{
			Reason: "no connection ready to provision",
		}
	}
	if e.profile == "" {
		e.mu.Unlock()
		return provision815.ProvisionOutcome{}, &provision815.ValidationError{
			Field:  "conectorPerfil",
			Reason: "is required",
		}
	}
	zone := e.zone
	connectionID := e.connectionID
	serial := e.serial
	profile := e.profile
	e.state = provision815.StateProvisioning
	// A new attempt discards the previous outcome
	e.outcome = nil
	e.busy = true
	e.mu.Unlock()

	log.Infof("Run %v - provisioning connection %v with profile %v", e.RunID, connectionID, profile)
	outcome, err := e.backend.Provision(zone, connectionID, serial, profile)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	if err != nil {
		outcome = provision815.ProvisionOutcome{
			Status:    provision815.StatusFailed,
			Message:   err.Error(),
			Condition: provision815.ConditionGeneric,
		}
	}
	if outcome.OK() {
		e.state = provision815.StateProvisioned
		e.lastError = ""
		log.Infof("Run %v - provisioned - %v", e.RunID, outcome.Message)
	} else {
		if outcome.Status == "" {
			outcome.Status = provision815.StatusFailed
		}
		if outcome.Message == "" {
			outcome.Message = "provisioning did not complete"
		}
		if outcome.Condition == provision815.ConditionNone {
			outcome.Condition = provision815.Classify(outcome.Message)
		}
		e.state = provision815.StateProvisioningFailed
		e.lastError = outcome.Message
	}
	e.outcome = &outcome
	log.Debug(spew.Sdump(outcome))

	event := provision815.OutcomeEvent{
		EventID:      uuid.New().String(),
		RunID:        e.RunID,
		Zone:         zone,
		ConnectionID: connectionID,
		Serial:       serial,
		Profile:      profile,
		State:        e.state,
		Outcome:      &outcome,
		Time:         time.Now(),
	}
	go e.publish(event)
	return outcome, nil
}
