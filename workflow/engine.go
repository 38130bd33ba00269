/*
	Workflow engine for the 815 provisioning flow.  One Engine is one
	operator run: zone and resource selection, the combined subscriber and
	connection create, and the provisioning state machine.  All remote
	traffic goes through the Backend interface so the engine can be driven
	against the real 815 client or a test double.
*/
package workflow

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	provision815 "github.com/luysmarlcm/provision815/structs"
)

// Backend is the slice of the 815 API the workflow needs.
type Backend interface {
	ListZones() []provision815.Zone
	ListNodes(zone string) []provision815.Node
	NodeResources(zone string, node int) (provision815.NodeResources, error)
	ListAvailableONUs(zone string) []provision815.AvailableONU
	ListPlans(zone string) []provision815.CatalogItem
	ListEquipment(zone string) []provision815.CatalogItem
	ListDhcpAccess(zone string) []provision815.CatalogItem
	ListConnectorProfiles(zone string) []provision815.ConnectorProfile
	CreateSubscriber(form provision815.SubscriberForm, pkIP string, zone string) (cliente json.RawMessage, conexion json.RawMessage, err error)
	CreateConnection(zone string, serial string) (connectionID string, err error)
	Provision(zone string, pkConexion string, serial string, conectorPerfil string) (provision815.ProvisionOutcome, error)
}

// OutcomeSink receives terminal provisioning outcomes.  The kafka producer
// and the audit store both satisfy this.
type OutcomeSink interface {
	RecordOutcome(event provision815.OutcomeEvent) error
}

type Engine struct {
	// Sinks and DefaultNode are set right after New, before the engine
	// sees concurrent use.
	Sinks       []OutcomeSink
	DefaultNode func(zone string) int

	RunID string

	mu      sync.Mutex
	backend Backend

	zone                string
	node                int
	resources           []provision815.AvailableResource
	selected            *provision815.AvailableResource
	availableResourceID string

	zones      []provision815.Zone
	nodes      []provision815.Node
	onus       []provision815.AvailableONU
	plans      []provision815.CatalogItem
	equipment  []provision815.CatalogItem
	dhcpAccess []provision815.CatalogItem
	profiles   []provision815.ConnectorProfile
	profile    string

	state        provision815.State
	subscriber   *provision815.Subscriber
	connectionID string
	serial       string
	outcome      *provision815.ProvisionOutcome
	lastError    string

	busy bool
}

func New(backend Backend) *Engine {
	return &Engine{
		RunID:   uuid.New().String(),
		backend: backend,
		state:   provision815.StateNoConnection,
	}
}

// Snapshot is the engine state as the presentation surface consumes it.
type Snapshot struct {
	RunID               string                           `json:"runId"`
	State               provision815.State               `json:"state"`
	Busy                bool                             `json:"busy"`
	Zone                string                           `json:"zone,omitempty"`
	Node                int                              `json:"node,omitempty"`
	AvailableResourceID string                           `json:"availableResourceId,omitempty"`
	Resources           []provision815.AvailableResource `json:"resources,omitempty"`
	Zones               []provision815.Zone              `json:"zones,omitempty"`
	Nodes               []provision815.Node              `json:"nodes,omitempty"`
	ONUs                []provision815.AvailableONU      `json:"onus,omitempty"`
	Plans               []provision815.CatalogItem       `json:"planes,omitempty"`
	Equipment           []provision815.CatalogItem       `json:"equipos,omitempty"`
	DhcpAccess          []provision815.CatalogItem       `json:"accesosDhcp,omitempty"`
	Profiles            []provision815.ConnectorProfile  `json:"perfiles,omitempty"`
	Profile             string                           `json:"conectorPerfil,omitempty"`
	Subscriber          *provision815.Subscriber         `json:"cliente,omitempty"`
	ConnectionID        string                           `json:"pkConexion,omitempty"`
	Serial              string                           `json:"numeroDeSerie,omitempty"`
	Outcome             *provision815.ProvisionOutcome   `json:"outcome,omitempty"`
	LastError           string                           `json:"lastError,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		RunID:               e.RunID,
		State:               e.state,
		Busy:                e.busy,
		Zone:                e.zone,
		Node:                e.node,
		AvailableResourceID: e.availableResourceID,
		Resources:           e.resources,
		Zones:               e.zones,
		Nodes:               e.nodes,
		ONUs:                e.onus,
		Plans:               e.plans,
		Equipment:           e.equipment,
		DhcpAccess:          e.dhcpAccess,
		Profiles:            e.profiles,
		Profile:             e.profile,
		Subscriber:          e.subscriber,
		ConnectionID:        e.connectionID,
		Serial:              e.serial,
		Outcome:             e.outcome,
		LastError:           e.lastError,
	}
}

// State returns the current workflow position.
func (e *Engine) State() provision815.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) publish(event provision815.OutcomeEvent) {
	for _, sink := range e.Sinks {
		if err := sink.RecordOutcome(event); err != nil {
			log.Errorf("Problem recording outcome event for run %v - %v", event.RunID, err)
		}
	}
}

func (e *Engine) defaultNode(zone string) int {
	if e.DefaultNode != nil {
		return e.DefaultNode(zone)
	}
	return 1400
}
