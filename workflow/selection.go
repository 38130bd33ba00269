package workflow

import (
	log "github.com/sirupsen/logrus"

	provision815 "github.com/luysmarlcm/provision815/structs"
)

/*
	Selection state and the keyed catalog fetch arena.  Every catalog fetch
	carries the scoping key it was issued for and its result is applied only
	if that key is still current when the response lands.  Fast zone
	switching can therefore never let a slow earlier response overwrite a
	newer selection.
*/

// RefreshZones loads the zone catalog.  Zones are not scoped by anything, so
// the latest response always applies.
func (e *Engine) RefreshZones() {
	go func() {
		zones := e.backend.ListZones()
		e.mu.Lock()
		e.zones = zones
		e.mu.Unlock()
	}()
}

// SetZone switches the run to a zone.  Every downstream selection and every
// zone-scoped catalog snapshot is cleared unconditionally first - selections
// are never carried across zones, even when the new zone happens to offer a
// resource with the same identifier.
func (e *Engine) SetZone(zone string) {
	e.mu.Lock()
	e.zone = zone
	e.node = e.defaultNode(zone)
	node := e.node
	e.selected = nil
	e.availableResourceID = ""
	e.resources = nil
	e.nodes = nil
	e.onus = nil
	e.plans = nil
	e.equipment = nil
	e.dhcpAccess = nil
	e.profiles = nil
	e.profile = ""
	e.subscriber = nil
	e.connectionID = ""
	e.serial = ""
	e.outcome = nil
	e.lastError = ""
	e.state = provision815.StateNoConnection
	e.mu.Unlock()
	if zone == "" {
		return
	}
	e.refreshZoneCatalogs(zone)
	e.refreshNodeResources(zone, node)
}

// SetNode picks a node inside the current zone and re-resolves availability.
func (e *Engine) SetNode(node int) {
	e.mu.Lock()
	zone := e.zone
	e.node = node
	e.selected = nil
	e.availableResourceID = ""
	e.resources = nil
	e.mu.Unlock()
	if zone == "" {
		return
	}
	e.refreshNodeResources(zone, node)
}

// SelectResource picks one of the node's resources.  The derived available
// resource id is only set when the resource is actually free; otherwise the
// workflow cannot proceed past this step.
func (e *Engine) SelectResource(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = nil
	e.availableResourceID = ""
	for i := range e.resources {
		if e.resources[i].ID == id {
			e.selected = &e.resources[i]
			if e.resources[i].Available {
				e.availableResourceID = e.resources[i].AvailablePK
			} else {
				log.Warnf("Resource %v in zone %v is not available", id, e.zone)
			}
			return
		}
	}
	log.Warnf("Resource %v is not offered by zone %v", id, e.zone)
}

// SetSerial records the equipment serial chosen from the available-ONU list.
func (e *Engine) SetSerial(serial string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.serial = serial
}

func (e *Engine) refreshZoneCatalogs(zone string) {
	go func() {
		nodes := e.backend.ListNodes(zone)
		e.applyZone(zone, "nodes", func() { e.nodes = nodes })
	}()
	go func() {
		onus := e.backend.ListAvailableONUs(zone)
		e.applyZone(zone, "onus", func() { e.onus = onus })
	}()
	go func() {
		plans := e.backend.ListPlans(zone)
		e.applyZone(zone, "plans", func() { e.plans = plans })
	}()
	go func() {
		equipment := e.backend.ListEquipment(zone)
		e.applyZone(zone, "equipment", func() { e.equipment = equipment })
	}()
	go func() {
		dhcpAccess := e.backend.ListDhcpAccess(zone)
		e.applyZone(zone, "dhcp access", func() { e.dhcpAccess = dhcpAccess })
	}()
	go func() {
		profiles := e.backend.ListConnectorProfiles(zone)
		e.applyZone(zone, "connector profiles", func() { e.setProfiles(profiles) })
	}()
}

func (e *Engine) refreshNodeResources(zone string, node int) {
	go func() {
		answer, err := e.backend.NodeResources(zone, node)
		if err != nil {
			log.Errorf("Problem getting resources for node %v/%v - %v", zone, node, err)
			return
		}
		resources := answer.Resources()
		e.mu.Lock()
		defer e.mu.Unlock()
		if zone != e.zone || node != e.node {
			log.Debugf("Discarding stale resource response for %v/%v", zone, node)
			return
		}
		e.resources = resources
	}()
}

// applyZone runs apply under the engine lock only when the originating zone
// is still selected.
func (e *Engine) applyZone(zone string, kind string, apply func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if zone != e.zone {
		log.Debugf("Discarding stale %v response for zone %v", kind, zone)
		return
	}
	apply()
}

// setProfiles keeps only profiles with a connector reference and pre-selects
// the default iff exactly one profile is flagged as such.  Called locked.
func (e *Engine) setProfiles(profiles []provision815.ConnectorProfile) {
	e.profiles = nil
	e.profile = ""
	var defaults []string
	for _, profile := range profiles {
		if profile.Connector == "" {
			continue
		}
		e.profiles = append(e.profiles, profile)
		if profile.Default {
			defaults = append(defaults, profile.Connector.String())
		}
	}
	if len(defaults) == 1 {
		e.profile = defaults[0]
	}
}

// SelectProfile overrides the connector profile before confirmation.  The
// connector must belong to the filtered profile list.
func (e *Engine) SelectProfile(connector string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, profile := range e.profiles {
		if profile.Connector.String() == connector {
			e.profile = connector
			return nil
		}
	}
	return &provision815.ValidationError{Field: "conectorPerfil", Reason: "not a connector profile of zone " + e.zone}
}
