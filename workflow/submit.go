package workflow

import (
	"bytes"
	"encoding/json"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/luysmarlcm/provision815/backend815"
	provision815 "github.com/luysmarlcm/provision815/structs"
)

// Submit validates the subscriber form and issues the combined
// create-subscriber-and-connection call.  Validation failures return an
// error before any network traffic.  Remote failures come back inside the
// SubmissionResult so the form survives for correction; a full success moves
// the run to ConnectionReady.
func (e *Engine) Submit(form provision815.SubscriberForm) (provision815.SubmissionResult, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		log.Warnf("Run %v - submission ignored, another request is in flight", e.RunID)
		return provision815.SubmissionResult{}, provision815.ErrBusy
	}
	if form.Zone == "" {
		form.Zone = e.zone
	}
	if form.Node == "" && e.selected != nil {
		form.Node = e.nodeField()
	}
	if form.Mode == "" {
		form.Mode = "dhcp"
	}
	if err := form.CheckValid(); err != nil {
		e.mu.Unlock()
		return provision815.SubmissionResult{}, err
	}
	if err := form.CheckReferences(e.plans, e.equipment, e.dhcpAccess); err != nil {
		e.mu.Unlock()
		return provision815.SubmissionResult{}, err
	}
	if e.availableResourceID == "" {
		e.mu.Unlock()
		return provision815.SubmissionResult{}, &provision815.ValidationError{
			Field:  "recurso",
			Reason: "no available resource selected",
		}
	}
	pkIP := e.availableResourceID
	zone := e.zone
	e.busy = true
	e.mu.Unlock()

	cliente, conexion, err := e.backend.CreateSubscriber(form, pkIP, zone)
	result := Interpret(cliente, conexion, err)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	e.serial = form.Serial
	switch result.Status {
	case provision815.SubmissionFull:
		e.subscriber = result.Subscriber
		e.connectionID = result.ConnectionID
		e.state = provision815.StateConnectionReady
		e.lastError = ""
		log.Infof("Run %v - subscriber and connection %v created", e.RunID, result.ConnectionID)
	case provision815.SubmissionPartial:
		// The subscriber record now exists server-side; the run stays in
		// NoConnection so the operator can create the connection on its
		// own without recreating the subscriber.
		e.subscriber = result.Subscriber
		e.lastError = "subscriber created without connection"
		log.Warnf("Run %v - subscriber created but no connection", e.RunID)
	case provision815.SubmissionFailed:
		e.lastError = result.Reason
		log.Errorf("Run %v - submission failed - %v", e.RunID, result.Reason)
	}
	return result, nil
}

// Interpret orders the combined-create response into one of the submission
// outcomes.  Precedence: remote failure, then missing subscriber, then
// missing connection, then full success.
func Interpret(cliente json.RawMessage, conexion json.RawMessage, err error) provision815.SubmissionResult {
	if err != nil {
		return provision815.SubmissionResult{
			Status: provision815.SubmissionFailed,
			Reason: err.Error(),
		}
	}
	if isNull(cliente) {
		return provision815.SubmissionResult{
			Status: provision815.SubmissionFailed,
			Reason: "subscriber not created",
		}
	}
	subscriber := decodeSubscriber(cliente)
	if isNull(conexion) {
		return provision815.SubmissionResult{
			Status:     provision815.SubmissionPartial,
			Subscriber: subscriber,
		}
	}
	connectionID, perr := backend815.ConnectionPK(conexion)
	if perr != nil {
		log.Warnf("Connection payload present but unusable - %v", perr)
		return provision815.SubmissionResult{
			Status:     provision815.SubmissionPartial,
			Subscriber: subscriber,
			Reason:     perr.Error(),
		}
	}
	return provision815.SubmissionResult{
		Status:       provision815.SubmissionFull,
		Subscriber:   subscriber,
		ConnectionID: connectionID,
	}
}

func isNull(raw json.RawMessage) bool {
	data := bytes.TrimSpace(raw)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

func decodeSubscriber(raw json.RawMessage) *provision815.Subscriber {
	subscriber := provision815.Subscriber{Raw: raw}
	if err := json.Unmarshal(raw, &subscriber); err != nil {
		log.Warnf("Subscriber payload did not decode cleanly - %v", err)
	}
	return &subscriber
}

// nodeField renders the current node for the form's nodoDeRed field.
// Called locked.
func (e *Engine) nodeField() string {
	if e.node == 0 {
		return ""
	}
	return strconv.Itoa(e.node)
}
