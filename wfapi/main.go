package main

/*
	WFAPI front-ends the 815 provisioning workflow for the operator UI.  It
	proxies the zone-scoped catalogs and runs the create-subscriber,
	create-connection and provision-equipment sequence as one state machine
	per operator session.
*/

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/luysmarlcm/provision815/auditdb"
	"github.com/luysmarlcm/provision815/backend815"
	"github.com/luysmarlcm/provision815/kafka"
	"github.com/luysmarlcm/provision815/workflow"
)

var (
	LogLevel = flag.String("loglevel", "info", "Log Level")
	Listen   = flag.String("listen", ":5021", "HTTP API listen address:port")

	UseTLS  = flag.Bool("tls.enable", false, "Enable TLS")
	TLSCert = flag.String("tls.cert", "/etc/ssl/wfapi.crt", "Server Certificate")
	TLSKey  = flag.String("tls.key", "/etc/ssl/private/wfapi.key", "Server private key")

	APIKey = flag.String("apikey", "", "API Key used for simple authentication")

	ConfigFile = flag.String("config", "backend815.cfg", "815 backend configuration file")

	MongoURI      = flag.String("mongouri", "", "MongoDB URL for the audit database - empty disables auditing")
	AuditDatabase = flag.String("auditdatabase", "provision", "Audit database name")

	KafkaBrk = flag.String("kafka.brokers", "", "Kafka brokers list separated by commas - empty disables outcome events")

	BackendConfig backend815.Configuration
	Backend       workflow.Backend
	Audit         *auditdb.Store
	KafkaEnabled  bool

	workflows   = map[string]*workflow.Engine{}
	workflowsMu sync.Mutex
)

func main() {
	flag.Parse()
	lvl, _ := log.ParseLevel(*LogLevel)
	log.SetLevel(lvl)

	BackendConfig = backend815.LoadConfig(*ConfigFile)
	Backend = backend815.New(BackendConfig)

	// setup signal catching
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs)
	go func() {
		for {
			select {
			case s := <-sigs:
				log.Debugf("RECEIVED SIGNAL: %s", s)
				if s == syscall.SIGQUIT || s == syscall.SIGKILL || s == syscall.SIGTERM || s == syscall.SIGINT {
					AppCleanup()
					os.Exit(1)
				} else if s == syscall.SIGHUP {
					log.Warning("Re-running process routine")
				}
			}
		}
	}()

	if *KafkaBrk != "" {
		kafka.StartProducer(strings.Split(*KafkaBrk, ","))
		KafkaEnabled = true
	}
	if *MongoURI != "" {
		var err error
		Audit, err = auditdb.Connect(*MongoURI, *AuditDatabase)
		if err != nil {
			log.Fatalf("Problem opening audit database - %v", err)
		}
	}

	// Run the web server
	router := NewRouter()

	if *UseTLS {
		log.Warning("Listening on " + *Listen + " TLS")
		log.Fatal(http.ListenAndServeTLS(*Listen, *TLSCert, *TLSKey, router))
	} else {
		log.Warning("Listening on " + *Listen)
		log.Fatal(http.ListenAndServe(*Listen, router))
	}
}

// NewRouter wires up the API routes
func NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(false)
	router.Methods("OPTIONS").HandlerFunc(HandleOptions)

	// Catalog proxy routes
	router.HandleFunc("/api/zonas", HandleZones).Methods("GET")
	router.HandleFunc("/api/nodos/{zone}", HandleNodes).Methods("GET")
	router.HandleFunc("/api/nodo/{zone}/{node}", HandleNodeResources).Methods("GET")
	router.HandleFunc("/api/onus-disponibles/{zone}", HandleAvailableONUs).Methods("GET")
	router.HandleFunc("/api/planes/{zone}", HandlePlans).Methods("GET")
	router.HandleFunc("/api/equipos/{zone}", HandleEquipment).Methods("GET")
	router.HandleFunc("/api/accesos-dhcp/{zone}", HandleDhcpAccess).Methods("GET")
	router.HandleFunc("/api/conectores-perfil/{zone}", HandleConnectorProfiles).Methods("GET")

	// Workflow routes
	router.HandleFunc("/api/workflow", HandleNewWorkflow).Methods("POST")
	router.HandleFunc("/api/workflow/{id}", HandleWorkflowState).Methods("GET")
	router.HandleFunc("/api/workflow/{id}/zona", HandleSetZone).Methods("POST")
	router.HandleFunc("/api/workflow/{id}/nodo", HandleSetNode).Methods("POST")
	router.HandleFunc("/api/workflow/{id}/recurso", HandleSelectResource).Methods("POST")
	router.HandleFunc("/api/workflow/{id}/perfil", HandleSelectProfile).Methods("POST")
	router.HandleFunc("/api/workflow/{id}/cliente", HandleSubmit).Methods("POST")
	router.HandleFunc("/api/workflow/{id}/conexion", HandleCreateConnection).Methods("POST")
	router.HandleFunc("/api/workflow/{id}/aprovisionar", HandleProvision).Methods("POST")
	router.HandleFunc("/api/workflow/{id}/intentos", HandleAttempts).Methods("GET")

	return router
}

// Shut down the app cleanly
func AppCleanup() {
	log.Error("Stopping Workflow API Service")
	if KafkaEnabled {
		kafka.Shutdown()
	}
	Audit.Disconnect()
}

func newWorkflow() *workflow.Engine {
	engine := workflow.New(Backend)
	engine.DefaultNode = BackendConfig.NodeFor
	if KafkaEnabled {
		engine.Sinks = append(engine.Sinks, kafka.Sink{})
	}
	if Audit != nil {
		engine.Sinks = append(engine.Sinks, Audit)
	}
	engine.RefreshZones()
	workflowsMu.Lock()
	workflows[engine.RunID] = engine
	workflowsMu.Unlock()
	return engine
}

func getWorkflow(id string) *workflow.Engine {
	workflowsMu.Lock()
	defer workflowsMu.Unlock()
	return workflows[id]
}
