package provision815

import (
	"regexp"
)

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// CheckValid verifies that every required field is present and that the MAC
// is colon-separated hex.  Lat/Lng are the only optional fields.
func (form *SubscriberForm) CheckValid() error {
	required := []struct {
		name  string
		value string
	}{
		{"nombre", form.Name},
		{"email", form.Email},
		{"telefono", form.Phone},
		{"domicilio", form.Address},
		{"cedula", form.NationalID},
		{"plan", form.Plan},
		{"mac", form.MAC},
		{"accesoDhcp", form.DhcpAccess},
		{"equipoCliente", form.Equipment},
		{"nodoDeRed", form.Node},
		{"conector", form.Connector},
		{"numeroDeSerie", form.Serial},
		{"zone", form.Zone},
	}
	for _, field := range required {
		if field.value == "" {
			return &ValidationError{Field: field.name, Reason: "is required"}
		}
	}
	if !macPattern.MatchString(form.MAC) {
		return &ValidationError{Field: "mac", Reason: "must be colon-separated hex, eg 00:11:22:AA:BB:CC"}
	}
	return nil
}

// CheckReferences verifies that the plan, equipment and DHCP access ids were
// actually offered by the catalog for the current zone.
func (form *SubscriberForm) CheckReferences(plans, equipment, dhcpAccess []CatalogItem) error {
	if !catalogHas(plans, form.Plan) {
		return &ValidationError{Field: "plan", Reason: "not a plan of zone " + form.Zone}
	}
	if !catalogHas(equipment, form.Equipment) {
		return &ValidationError{Field: "equipoCliente", Reason: "not an equipment model of zone " + form.Zone}
	}
	if !catalogHas(dhcpAccess, form.DhcpAccess) {
		return &ValidationError{Field: "accesoDhcp", Reason: "not a DHCP access of zone " + form.Zone}
	}
	return nil
}

func catalogHas(items []CatalogItem, pk string) bool {
	for _, item := range items {
		if item.PK.String() == pk {
			return true
		}
	}
	return false
}
