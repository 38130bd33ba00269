package backend815

import (
	"bytes"
	"encoding/json"

	log "github.com/sirupsen/logrus"

	provision815 "github.com/luysmarlcm/provision815/structs"
)

// CreateSubscriber issues the combined create-subscriber-and-connection call.
// The raw cliente and conexion payloads come back undecoded - interpreting
// their presence and shape is the submission layer's job.
func (c *Client) CreateSubscriber(form provision815.SubscriberForm, pkIP string, zone string) (cliente json.RawMessage, conexion json.RawMessage, err error) {
	request := struct {
		FormData provision815.SubscriberForm `json:"formData"`
		PkIP     string                      `json:"pkIp"`
		Zone     string                      `json:"zone"`
	}{
		FormData: form,
		PkIP:     pkIP,
		Zone:     zone,
	}
	var result []byte
	result, err = c.post("/api/clientes/crear", request)
	if err != nil {
		err = &provision815.TransportError{Op: "create subscriber", Err: err}
		return
	}
	if message := errorMessage(result); message != "" {
		err = &provision815.DomainError{Message: message, Condition: provision815.Classify(message)}
		return
	}
	var body struct {
		Cliente  json.RawMessage `json:"cliente"`
		Conexion json.RawMessage `json:"conexion"`
	}
	if err = json.Unmarshal(result, &body); err != nil {
		err = &provision815.TransportError{Op: "create subscriber decode", Err: err}
		return
	}
	cliente = body.Cliente
	conexion = body.Conexion
	return
}

// CreateConnection creates the physical connection record on its own, for
// runs where the combined call produced a subscriber but no connection.
func (c *Client) CreateConnection(zone string, serial string) (connectionID string, err error) {
	request := struct {
		Zone   string `json:"zone"`
		Serial string `json:"numeroDeSerie"`
	}{
		Zone:   zone,
		Serial: serial,
	}
	var result []byte
	result, err = c.post("/api/conexiones/crear", request)
	if err != nil {
		err = &provision815.TransportError{Op: "create connection", Err: err}
		return
	}
	if message := errorMessage(result); message != "" {
		err = &provision815.DomainError{Message: message, Condition: provision815.Classify(message)}
		return
	}
	var body struct {
		Conexion json.RawMessage `json:"conexion"`
	}
	payload := json.RawMessage(result)
	if json.Unmarshal(result, &body) == nil && len(bytes.TrimSpace(body.Conexion)) > 0 {
		payload = body.Conexion
	}
	connectionID, err = ConnectionPK(payload)
	if err != nil {
		err = &provision815.TransportError{Op: "create connection decode", Err: err}
	}
	return
}

// Provision issues the equipment provisioning command for a connection.  A
// non-nil error means the command could not be evaluated at all; business
// failures come back inside the outcome so the collected logs survive.
func (c *Client) Provision(zone string, pkConexion string, serial string, conectorPerfil string) (outcome provision815.ProvisionOutcome, err error) {
	request := struct {
		Zone    string      `json:"zone"`
		PK      string      `json:"pkConexion"`
		Serial  string      `json:"numeroDeSerie"`
		Profile json.Number `json:"conectorPerfil"`
	}{
		Zone:    zone,
		PK:      pkConexion,
		Serial:  serial,
		Profile: json.Number(conectorPerfil),
	}
	var result []byte
	result, err = c.post("/api/cliente/aprovisionar", request)
	if err != nil {
		err = &provision815.TransportError{Op: "provision", Err: err}
		return
	}
	var body struct {
		Message string          `json:"message"`
		Estado  string          `json:"estado"`
		Mensaje string          `json:"mensaje"`
		Logs    []string        `json:"logs"`
		Detalle json.RawMessage `json:"detalle"`
		// Some backend paths wrap the result in a salida object
		Salida *provision815.ProvisionOutcome `json:"salida"`
	}
	if err = json.Unmarshal(result, &body); err != nil {
		err = &provision815.TransportError{Op: "provision decode", Err: err}
		return
	}
	if body.Salida != nil && body.Estado == "" {
		outcome = *body.Salida
		if len(outcome.Logs) == 0 {
			outcome.Logs = body.Logs
		}
	} else {
		outcome = provision815.ProvisionOutcome{
			Status:  body.Estado,
			Message: body.Mensaje,
			Logs:    body.Logs,
			Detail:  body.Detalle,
		}
	}
	if body.Message != "" {
		// Error shape takes precedence over whatever estado says
		outcome.Status = provision815.StatusFailed
		outcome.Message = body.Message
	}
	if !outcome.OK() {
		if outcome.Status == "" {
			outcome.Status = provision815.StatusFailed
		}
		outcome.Condition = provision815.Classify(outcome.Message)
		log.Errorf("Provisioning failed for connection %v - %v", pkConexion, outcome.Message)
	}
	return
}
