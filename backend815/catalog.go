package backend815

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	provision815 "github.com/luysmarlcm/provision815/structs"
)

/*
	Read-only catalog queries.  Every list call degrades to an empty result
	on failure - the workflow keeps running with empty dropdowns rather than
	crashing - and the failure goes to the diagnostic hook.
*/

func (c *Client) ListZones() []provision815.Zone {
	var zones []provision815.Zone
	if err := c.getList("/api/zonas", &zones); err != nil {
		c.report("zone list", err)
		return nil
	}
	return zones
}

func (c *Client) ListNodes(zone string) []provision815.Node {
	var nodes []provision815.Node
	if err := c.getList("/api/nodos/"+zone, &nodes); err != nil {
		c.report("node list", err)
		return nil
	}
	return nodes
}

// NodeResources fetches resource availability for a zone/node pair.  Unlike
// the list calls this returns its error - a missing availability answer
// blocks the workflow and the caller needs to know why.
func (c *Client) NodeResources(zone string, node int) (resources provision815.NodeResources, err error) {
	var result []byte
	result, err = c.get("/api/nodo/" + zone + "/" + strconv.Itoa(node))
	if err != nil {
		return
	}
	if message := errorMessage(result); message != "" {
		err = errors.New(message)
		return
	}
	err = json.Unmarshal(result, &resources)
	return
}

func (c *Client) ListAvailableONUs(zone string) []provision815.AvailableONU {
	result, err := c.get("/api/onus-disponibles/" + zone)
	if err != nil {
		c.report("available ONU list", err)
		return nil
	}
	var body struct {
		ONUs []string `json:"onusDisponibles"`
	}
	if err = json.Unmarshal(result, &body); err != nil {
		c.report("available ONU list", err)
		return nil
	}
	var onus []provision815.AvailableONU
	for _, raw := range body.ONUs {
		onu := ParseAvailableONU(raw)
		if onu.Serial != "" {
			onus = append(onus, onu)
		}
	}
	return onus
}

func (c *Client) ListPlans(zone string) []provision815.CatalogItem {
	return c.catalogItems("plan list", "/api/planes/"+zone)
}

func (c *Client) ListEquipment(zone string) []provision815.CatalogItem {
	return c.catalogItems("equipment list", "/api/equipos/"+zone)
}

func (c *Client) ListDhcpAccess(zone string) []provision815.CatalogItem {
	return c.catalogItems("DHCP access list", "/api/accesos-dhcp/"+zone)
}

func (c *Client) ListConnectorProfiles(zone string) []provision815.ConnectorProfile {
	var profiles []provision815.ConnectorProfile
	if err := c.getList("/api/conectores-perfil/"+zone, &profiles); err != nil {
		c.report("connector profile list", err)
		return nil
	}
	return profiles
}

func (c *Client) catalogItems(op string, path string) []provision815.CatalogItem {
	var items []provision815.CatalogItem
	if err := c.getList(path, &items); err != nil {
		c.report(op, err)
		return nil
	}
	return items
}

func (c *Client) getList(path string, out interface{}) error {
	result, err := c.get(path)
	if err != nil {
		return err
	}
	if message := errorMessage(result); message != "" {
		return errors.New(message)
	}
	return json.Unmarshal(result, out)
}

// ParseAvailableONU splits the backend's "SERIAL<br>(alias)" strings.  The
// alias is optional and arrives wrapped in parentheses.
func ParseAvailableONU(raw string) provision815.AvailableONU {
	parts := strings.SplitN(raw, "<br>", 2)
	serial := strings.TrimSpace(parts[0])
	onu := provision815.AvailableONU{
		Serial:      serial,
		DisplayName: serial,
	}
	if len(parts) == 2 {
		alias := strings.TrimSpace(strings.NewReplacer("(", "", ")", "").Replace(parts[1]))
		if alias != "" {
			onu.DisplayName = serial + " (" + alias + ")"
		}
	}
	return onu
}
