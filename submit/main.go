package main

/*
	Configured for testing - drive one complete workflow run against the 815
	backend and see what happens

*/

import (
	"flag"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/luysmarlcm/provision815/backend815"
	provision815 "github.com/luysmarlcm/provision815/structs"
	"github.com/luysmarlcm/provision815/workflow"
)

var (
	LogLevel   = flag.String("loglevel", "debug", "Log Level")
	ConfigFile = flag.String("config", "backend815.cfg", "815 backend configuration file")
	Zone       = flag.String("zone", "GTRE01", "Zone to provision in")
	Resource   = flag.String("resource", "ip", "Resource to select - ip or onu")
	Serial     = flag.String("serial", "HWTC12345678", "Equipment serial number")
	Profile    = flag.String("profile", "", "Connector profile override - empty keeps the zone default")
)

func init() {
	flag.Parse()
	lvl, _ := log.ParseLevel(*LogLevel)
	log.SetLevel(lvl)
}

func main() {
	config := backend815.LoadConfig(*ConfigFile)
	client := backend815.New(config)

	engine := workflow.New(client)
	engine.DefaultNode = config.NodeFor

	engine.RefreshZones()
	engine.SetZone(*Zone)

	// Give the catalog fetches a moment to land
	time.Sleep(3 * time.Second)
	snapshot := engine.Snapshot()
	log.Infof("Zone %v node %v - %v resources, %v plans, %v equipment models, %v DHCP accesses, %v connector profiles",
		snapshot.Zone, snapshot.Node, len(snapshot.Resources), len(snapshot.Plans),
		len(snapshot.Equipment), len(snapshot.DhcpAccess), len(snapshot.Profiles))

	engine.SelectResource(*Resource)
	engine.SetSerial(*Serial)
	snapshot = engine.Snapshot()
	if snapshot.AvailableResourceID == "" {
		log.Fatalf("Resource %v is not available in zone %v", *Resource, *Zone)
	}

	form := provision815.SubscriberForm{
		Name:       "Test Subscriber",
		Email:      "test@example.com",
		Phone:      "0000000000",
		Address:    "Calle Falsa 123",
		NationalID: "00000000",
		MAC:        "00:11:22:AA:BB:CC",
		Mode:       "dhcp",
		Connector:  "0",
		Serial:     *Serial,
		Zone:       *Zone,
	}
	// Take the first offering of each catalog for the reference fields
	if len(snapshot.Plans) > 0 {
		form.Plan = snapshot.Plans[0].PK.String()
	}
	if len(snapshot.Equipment) > 0 {
		form.Equipment = snapshot.Equipment[0].PK.String()
	}
	if len(snapshot.DhcpAccess) > 0 {
		form.DhcpAccess = snapshot.DhcpAccess[0].PK.String()
	}

	result, err := engine.Submit(form)
	if err != nil {
		log.Fatalf("Problem submitting form - %v", err)
	}
	log.Infof("Submission result is %v", result.Status)

	switch result.Status {
	case provision815.SubmissionFailed:
		log.Fatalf("Submission failed - %v", result.Reason)
	case provision815.SubmissionPartial:
		log.Warn("Subscriber created without connection - creating connection separately")
		connectionID, err := engine.CreateConnection(*Serial)
		if err != nil {
			log.Fatalf("Problem creating connection - %v", err)
		}
		log.Infof("Connection id is %v", connectionID)
	case provision815.SubmissionFull:
		log.Infof("Connection id is %v", result.ConnectionID)
	}

	if *Profile != "" {
		if err := engine.SelectProfile(*Profile); err != nil {
			log.Fatalf("Problem selecting profile - %v", err)
		}
	}

	outcome, err := engine.ConfirmProvision()
	if err != nil {
		log.Fatalf("Problem confirming provisioning - %v", err)
	}
	for _, line := range outcome.Logs {
		log.Info("provision: " + line)
	}
	if outcome.OK() {
		log.Infof("Provisioned - %v", outcome.Message)
	} else {
		log.Errorf("Provisioning failed (%v) - %v", outcome.Condition, outcome.Message)
	}
}
