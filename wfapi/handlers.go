package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	provision815 "github.com/luysmarlcm/provision815/structs"
)

// Handle Options pre-flight requests
func HandleOptions(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
}

// Generate CORS headers for responses
func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	headers := w.Header()
	headers.Add("Access-Control-Allow-Headers", "Content-Type, Origin, Accept, token, api-key")
	headers.Add("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	headers.Add("Access-Control-Allow-Origin", "*")
}

// Check API Key Authorization
func CheckAuth(w http.ResponseWriter, r *http.Request) bool {
	if *APIKey == "" || r.Header.Get("api-key") == *APIKey {
		return true
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
	return false
}

func respond(w http.ResponseWriter, data interface{}, err error) {
	var response Response
	if err != nil {
		response.Status = "error"
		response.Error = err.Error()
	} else {
		response.Status = "ok"
		response.Data = data
	}
	json.NewEncoder(w).Encode(response)
}

// ---- Catalog proxy handlers

func HandleZones(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	respond(w, Backend.ListZones(), nil)
}

func HandleNodes(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	respond(w, Backend.ListNodes(mux.Vars(r)["zone"]), nil)
}

func HandleNodeResources(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	zone := mux.Vars(r)["zone"]
	node, err := strconv.Atoi(mux.Vars(r)["node"])
	if err != nil {
		respond(w, nil, errors.New("node must be numeric"))
		return
	}
	resources, err := Backend.NodeResources(zone, node)
	if err != nil {
		respond(w, nil, err)
		return
	}
	respond(w, resources.Resources(), nil)
}

func HandleAvailableONUs(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	respond(w, Backend.ListAvailableONUs(mux.Vars(r)["zone"]), nil)
}

func HandlePlans(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	respond(w, Backend.ListPlans(mux.Vars(r)["zone"]), nil)
}

func HandleEquipment(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	respond(w, Backend.ListEquipment(mux.Vars(r)["zone"]), nil)
}

func HandleDhcpAccess(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	respond(w, Backend.ListDhcpAccess(mux.Vars(r)["zone"]), nil)
}

func HandleConnectorProfiles(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	respond(w, Backend.ListConnectorProfiles(mux.Vars(r)["zone"]), nil)
}

// ---- Workflow handlers

func HandleNewWorkflow(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	engine := newWorkflow()
	log.Infof("Started workflow run %v", engine.RunID)
	respond(w, engine.Snapshot(), nil)
}

func HandleWorkflowState(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	engine := getWorkflow(mux.Vars(r)["id"])
	if engine == nil {
		respond(w, nil, errors.New("unknown workflow run"))
		return
	}
	respond(w, engine.Snapshot(), nil)
}

func HandleSetZone(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	engine := getWorkflow(mux.Vars(r)["id"])
	if engine == nil {
		respond(w, nil, errors.New("unknown workflow run"))
		return
	}
	var body struct {
		Zone string `json:"zone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, nil, err)
		return
	}
	engine.SetZone(body.Zone)
	respond(w, engine.Snapshot(), nil)
}

func HandleSetNode(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	engine := getWorkflow(mux.Vars(r)["id"])
	if engine == nil {
		respond(w, nil, errors.New("unknown workflow run"))
		return
	}
	var body struct {
		Node int `json:"node"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, nil, err)
		return
	}
	engine.SetNode(body.Node)
	respond(w, engine.Snapshot(), nil)
}

func HandleSelectResource(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	engine := getWorkflow(mux.Vars(r)["id"])
	if engine == nil {
		respond(w, nil, errors.New("unknown workflow run"))
		return
	}
	var body struct {
		ID     string `json:"id"`
		Serial string `json:"numeroDeSerie"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, nil, err)
		return
	}
	engine.SelectResource(body.ID)
	if body.Serial != "" {
		engine.SetSerial(body.Serial)
	}
	respond(w, engine.Snapshot(), nil)
}

func HandleSelectProfile(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	engine := getWorkflow(mux.Vars(r)["id"])
	if engine == nil {
		respond(w, nil, errors.New("unknown workflow run"))
		return
	}
	var body struct {
		Connector string `json:"conector"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, nil, err)
		return
	}
	if err := engine.SelectProfile(body.Connector); err != nil {
		respond(w, nil, err)
		return
	}
	respond(w, engine.Snapshot(), nil)
}

func HandleSubmit(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	engine := getWorkflow(mux.Vars(r)["id"])
	if engine == nil {
		respond(w, nil, errors.New("unknown workflow run"))
		return
	}
	var body struct {
		FormData provision815.SubscriberForm `json:"formData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, nil, err)
		return
	}
	result, err := engine.Submit(body.FormData)
	if err != nil {
		respond(w, nil, err)
		return
	}
	respond(w, result, nil)
}

func HandleCreateConnection(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	engine := getWorkflow(mux.Vars(r)["id"])
	if engine == nil {
		respond(w, nil, errors.New("unknown workflow run"))
		return
	}
	var body struct {
		Serial string `json:"numeroDeSerie"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, nil, err)
		return
	}
	connectionID, err := engine.CreateConnection(body.Serial)
	if err != nil {
		respond(w, nil, err)
		return
	}
	respond(w, map[string]string{"pkConexion": connectionID}, nil)
}

func HandleProvision(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	engine := getWorkflow(mux.Vars(r)["id"])
	if engine == nil {
		respond(w, nil, errors.New("unknown workflow run"))
		return
	}
	// Optional last-moment profile override in the body
	var body struct {
		Connector string `json:"conectorPerfil"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	if body.Connector != "" {
		if err := engine.SelectProfile(body.Connector); err != nil {
			respond(w, nil, err)
			return
		}
	}
	outcome, err := engine.ConfirmProvision()
	if err != nil {
		respond(w, nil, err)
		return
	}
	respond(w, outcome, nil)
}

func HandleAttempts(w http.ResponseWriter, r *http.Request) {
	CORSHeaders(w, r)
	if !CheckAuth(w, r) {
		return
	}
	if Audit == nil {
		respond(w, nil, errors.New("auditing is not enabled"))
		return
	}
	attempts, err := Audit.RunAttempts(mux.Vars(r)["id"])
	if err != nil {
		respond(w, nil, err)
		return
	}
	respond(w, attempts, nil)
}
