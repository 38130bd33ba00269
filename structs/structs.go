package provision815

import (
	"bytes"
	"encoding/json"
	"time"
)

// PK is a backend primary key.  The 815 API is not consistent about whether
// keys arrive as JSON strings or numbers, so both decode to the string form.
type PK string

func (p *PK) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = PK(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PK(n.String())
	return nil
}

func (p PK) String() string {
	return string(p)
}

type Zone struct {
	ID   string `json:"id"`     // Zone identifier, unique within the catalog
	Name string `json:"nombre"` // Display name
}

type Node struct {
	PK     PK `json:"pk"` // Node identifier within its zone
	Fields struct {
		Name string `json:"nombre"`
	} `json:"fields"`
}

// NodeResources is the availability answer for a zone/node pair.  Either key
// may be absent or null - a node can have an IP free, an ONU free, both or
// neither.
type NodeResources struct {
	IP  *IPResource  `json:"ip"`
	ONU *ONUResource `json:"onu"`
}

type IPResource struct {
	Address     string `json:"direccion_ip"`
	Available   string `json:"ip_disponible"` // "1" means available
	AvailablePK PK     `json:"pk_ip_disponible"`
}

type ONUResource struct {
	Name string `json:"nombre"`
	IP   *struct {
		Available string `json:"ip_disponible"`
		PK        PK     `json:"pk"`
	} `json:"ip"`
}

type ResourceKind string

const (
	ResourceIP  ResourceKind = "IP"
	ResourceONU ResourceKind = "ONU"
)

// AvailableResource is the normalized view of a node resource that the
// operator picks from.  AvailablePK is the key attached to the connection
// create call and is only set when the resource is actually free.
type AvailableResource struct {
	Kind        ResourceKind `json:"kind"`
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Available   bool         `json:"available"`
	AvailablePK string       `json:"availablePk,omitempty"`
}

// Resources flattens a node availability answer into selectable entries.
func (n NodeResources) Resources() []AvailableResource {
	var list []AvailableResource
	if n.IP != nil {
		res := AvailableResource{
			Kind:  ResourceIP,
			ID:    "ip",
			Label: "IP " + n.IP.Address,
		}
		if n.IP.Available == "1" {
			res.Available = true
			res.AvailablePK = n.IP.AvailablePK.String()
		}
		list = append(list, res)
	}
	if n.ONU != nil {
		res := AvailableResource{
			Kind:  ResourceONU,
			ID:    "onu",
			Label: "ONU " + n.ONU.Name,
		}
		if n.ONU.IP != nil && n.ONU.IP.Available == "1" {
			res.Available = true
			res.AvailablePK = n.ONU.IP.PK.String()
		}
		list = append(list, res)
	}
	return list
}

// AvailableONU is one free optical terminal, parsed from the backend's
// "SERIAL<br>(alias)" strings.
type AvailableONU struct {
	Serial      string `json:"serial"`
	DisplayName string `json:"nombre"`
}

// CatalogItem is a generic zone-scoped catalog row - plans, customer
// equipment models and DHCP access profiles all share this shape.
type CatalogItem struct {
	PK   PK     `json:"pk"`
	Name string `json:"nombre"`
}

type ConnectorProfile struct {
	PK        PK     `json:"pk"`
	Name      string `json:"nombre"`
	Connector PK     `json:"conector"` // External connector reference, empty on unusable profiles
	Default   bool   `json:"esDefault"`
}

// SubscriberForm carries the operator-entered subscriber data.  Field names
// follow the backend wire format since the whole struct is posted as
// formData.  Lat/Lng are the only optional fields.
type SubscriberForm struct {
	Name       string `json:"nombre"`
	Email      string `json:"email"`
	Phone      string `json:"telefono"`
	Address    string `json:"domicilio"`
	NationalID string `json:"cedula"`
	Plan       string `json:"plan"`
	MAC        string `json:"mac"`
	Mode       string `json:"modoConexion"`
	DhcpAccess string `json:"accesoDhcp"`
	Equipment  string `json:"equipoCliente"`
	Node       string `json:"nodoDeRed"`
	Connector  string `json:"conector"` // External system (WISPHUB) subscriber ID
	Serial     string `json:"numeroDeSerie"`
	Zone       string `json:"zone"`
	Lat        string `json:"lat,omitempty"`
	Lng        string `json:"lng,omitempty"`
}

// Subscriber is the server-created record.  The backend echo varies, so the
// full payload is kept raw alongside the extracted identity.
type Subscriber struct {
	PK   PK              `json:"pk"`
	Name string          `json:"nombre"`
	Raw  json.RawMessage `json:"-"`
}

type SubmissionStatus string

const (
	SubmissionFailed  SubmissionStatus = "Failed"
	SubmissionPartial SubmissionStatus = "Partial" // Subscriber exists, no connection was created
	SubmissionFull    SubmissionStatus = "Full"
)

// SubmissionResult is the interpreted outcome of the combined
// create-subscriber-and-connection call.
type SubmissionResult struct {
	Status       SubmissionStatus `json:"status"`
	Reason       string           `json:"reason,omitempty"`
	Subscriber   *Subscriber      `json:"subscriber,omitempty"`
	ConnectionID string           `json:"connectionId,omitempty"`
}

const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// ProvisionOutcome is the terminal result of one provisioning attempt.  Logs
// are kept in backend emission order and are populated on failure too.
type ProvisionOutcome struct {
	Status    string          `json:"estado"`
	Message   string          `json:"mensaje"`
	Logs      []string        `json:"logs,omitempty"`
	Detail    json.RawMessage `json:"detalle,omitempty"`
	Condition DomainCondition `json:"condition,omitempty"`
}

func (o ProvisionOutcome) OK() bool {
	return o.Status == StatusOK
}

// State is the workflow position.  One tagged value instead of independent
// created/connected/provisioned booleans, so that combinations like
// "provisioned without a connection" cannot be represented.
type State string

const (
	StateNoConnection       State = "NoConnection"
	StateConnectionReady    State = "ConnectionReady"
	StateProvisioning       State = "Provisioning"
	StateProvisioned        State = "Provisioned"
	StateProvisioningFailed State = "ProvisioningFailed"
)

func (s State) String() string {
	return string(s)
}

// OutcomeEvent is what gets published to the outcome topic when a workflow
// run reaches a terminal provisioning state.
type OutcomeEvent struct {
	EventID      string            `json:"EventID"`
	RunID        string            `json:"RunID"`
	Zone         string            `json:"Zone"`
	ConnectionID string            `json:"ConnectionID"`
	Serial       string            `json:"Serial"`
	Profile      string            `json:"Profile"`
	State        State             `json:"State"`
	Outcome      *ProvisionOutcome `json:"Outcome,omitempty"`
	Time         time.Time         `json:"Time"`
}
