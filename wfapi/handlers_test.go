package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	provision815 "github.com/luysmarlcm/provision815/structs"
	"github.com/luysmarlcm/provision815/workflow"
)

// stubBackend serves canned catalog data so the handlers can be driven
// without a live 815 instance.
type stubBackend struct{}

func (stubBackend) ListZones() []provision815.Zone {
	return []provision815.Zone{{ID: "GTRE01", Name: "Guatire 01"}}
}

func (stubBackend) ListNodes(zone string) []provision815.Node {
	return nil
}

func (stubBackend) NodeResources(zone string, node int) (provision815.NodeResources, error) {
	var answer provision815.NodeResources
	raw := `{"ip":{"direccion_ip":"10.0.0.1","ip_disponible":"1","pk_ip_disponible":"55"}}`
	json.Unmarshal([]byte(raw), &answer)
	return answer, nil
}

func (stubBackend) ListAvailableONUs(zone string) []provision815.AvailableONU {
	return []provision815.AvailableONU{{Serial: "HWTC1111", DisplayName: "HWTC1111 planta baja"}}
}

func (stubBackend) ListPlans(zone string) []provision815.CatalogItem {
	return []provision815.CatalogItem{{PK: "3", Name: "Plan 100M"}}
}

func (stubBackend) ListEquipment(zone string) []provision815.CatalogItem {
	return []provision815.CatalogItem{{PK: "7", Name: "ONT HG8310"}}
}

func (stubBackend) ListDhcpAccess(zone string) []provision815.CatalogItem {
	return []provision815.CatalogItem{{PK: "5", Name: "DHCP residencial"}}
}

func (stubBackend) ListConnectorProfiles(zone string) []provision815.ConnectorProfile {
	return []provision815.ConnectorProfile{{PK: "1", Name: "Default", Connector: "9", Default: true}}
}

func (stubBackend) CreateSubscriber(form provision815.SubscriberForm, pkIP string, zone string) (json.RawMessage, json.RawMessage, error) {
	return json.RawMessage(`{"pk":"7","nombre":"Maria"}`), json.RawMessage(`{"pk":"42"}`), nil
}

func (stubBackend) CreateConnection(zone string, serial string) (string, error) {
	return "42", nil
}

func (stubBackend) Provision(zone string, pkConexion string, serial string, conectorPerfil string) (provision815.ProvisionOutcome, error) {
	return provision815.ProvisionOutcome{Status: provision815.StatusOK, Message: "listo"}, nil
}

type testResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func call(t *testing.T, router http.Handler, method string, path string, body interface{}) (int, testResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	var response testResponse
	if recorder.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	}
	return recorder.Code, response
}

func TestCatalogRoutes(t *testing.T) {
	Backend = stubBackend{}
	router := NewRouter()

	code, response := call(t, router, "GET", "/api/zonas", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", response.Status)
	var zones []provision815.Zone
	require.NoError(t, json.Unmarshal(response.Data, &zones))
	require.Len(t, zones, 1)
	assert.Equal(t, "GTRE01", zones[0].ID)

	code, response = call(t, router, "GET", "/api/nodo/GTRE01/1400", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", response.Status)
	var resources []provision815.AvailableResource
	require.NoError(t, json.Unmarshal(response.Data, &resources))
	require.Len(t, resources, 1)
	assert.True(t, resources[0].Available)
	assert.Equal(t, "55", resources[0].AvailablePK)

	code, response = call(t, router, "GET", "/api/nodo/GTRE01/abc", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", response.Status)
	assert.Equal(t, "node must be numeric", response.Error)
}

func TestAPIKey(t *testing.T) {
	Backend = stubBackend{}
	router := NewRouter()

	*APIKey = "secret"
	defer func() { *APIKey = "" }()

	request := httptest.NewRequest("GET", "/api/zonas", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	request = httptest.NewRequest("GET", "/api/zonas", nil)
	request.Header.Set("api-key", "secret")
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestUnknownWorkflowRun(t *testing.T) {
	Backend = stubBackend{}
	router := NewRouter()

	code, response := call(t, router, "GET", "/api/workflow/nope", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", response.Status)
	assert.Equal(t, "unknown workflow run", response.Error)
}

func TestWorkflowLifecycle(t *testing.T) {
	Backend = stubBackend{}
	router := NewRouter()

	code, response := call(t, router, "POST", "/api/workflow", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", response.Status)
	var snapshot workflow.Snapshot
	require.NoError(t, json.Unmarshal(response.Data, &snapshot))
	require.NotEmpty(t, snapshot.RunID)
	base := "/api/workflow/" + snapshot.RunID

	code, response = call(t, router, "POST", base+"/zona", map[string]string{"zone": "GTRE01"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", response.Status)

	// Zone catalogs and node resources arrive asynchronously
	require.Eventually(t, func() bool {
		_, response := call(t, router, "GET", base, nil)
		if response.Status != "ok" {
			return false
		}
		var snapshot workflow.Snapshot
		if err := json.Unmarshal(response.Data, &snapshot); err != nil {
			return false
		}
		return len(snapshot.Resources) > 0 && len(snapshot.Plans) > 0 && snapshot.Profile != ""
	}, time.Second, 5*time.Millisecond)

	code, response = call(t, router, "POST", base+"/recurso", map[string]string{"id": "ip", "numeroDeSerie": "HWTC1111"})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(response.Data, &snapshot))
	assert.Equal(t, "55", snapshot.AvailableResourceID)
	assert.Equal(t, "HWTC1111", snapshot.Serial)

	form := provision815.SubscriberForm{
		Name:       "Maria Perez",
		Email:      "maria@example.com",
		Phone:      "04141234567",
		Address:    "Av Principal 10",
		NationalID: "V12345678",
		Plan:       "3",
		MAC:        "00:11:22:AA:BB:CC",
		Mode:       "dhcp",
		DhcpAccess: "5",
		Equipment:  "7",
		Node:       "1400",
		Connector:  "815",
		Serial:     "HWTC1111",
		Zone:       "GTRE01",
	}
	code, response = call(t, router, "POST", base+"/cliente", map[string]interface{}{"formData": form})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", response.Status)
	var result provision815.SubmissionResult
	require.NoError(t, json.Unmarshal(response.Data, &result))
	assert.Equal(t, provision815.SubmissionFull, result.Status)
	assert.Equal(t, "42", result.ConnectionID)

	code, response = call(t, router, "POST", base+"/aprovisionar", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", response.Status)
	var outcome provision815.ProvisionOutcome
	require.NoError(t, json.Unmarshal(response.Data, &outcome))
	assert.True(t, outcome.OK())

	_, response = call(t, router, "GET", base, nil)
	require.NoError(t, json.Unmarshal(response.Data, &snapshot))
	assert.Equal(t, provision815.StateProvisioned, snapshot.State)
}

func TestSelectProfileRejectsUnknownConnector(t *testing.T) {
	Backend = stubBackend{}
	router := NewRouter()

	_, response := call(t, router, "POST", "/api/workflow", nil)
	var snapshot workflow.Snapshot
	require.NoError(t, json.Unmarshal(response.Data, &snapshot))
	base := "/api/workflow/" + snapshot.RunID

	call(t, router, "POST", base+"/zona", map[string]string{"zone": "GTRE01"})
	require.Eventually(t, func() bool {
		_, response := call(t, router, "GET", base, nil)
		var snapshot workflow.Snapshot
		if err := json.Unmarshal(response.Data, &snapshot); err != nil {
			return false
		}
		return len(snapshot.Profiles) > 0
	}, time.Second, 5*time.Millisecond)

	_, response = call(t, router, "POST", base+"/perfil", map[string]string{"conector": "404"})
	assert.Equal(t, "error", response.Status)

	_, response = call(t, router, "POST", base+"/perfil", map[string]string{"conector": "9"})
	assert.Equal(t, "ok", response.Status)
}
