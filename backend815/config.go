package backend815

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tkanos/gonfig"
)

type Configuration struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
	DefaultNode    map[string]int // Default node per zone for resource lookups
}

// The node most zones allocate from when none is chosen explicitly.
const fallbackNode = 1400

func LoadConfig(filename string) Configuration {
	configuration := Configuration{}
	err := gonfig.GetConf(filename, &configuration)
	if err != nil {
		log.Fatal(fmt.Errorf("Error loading Configuration File %s", err))
	}
	log.Info("Using 815 backend at " + configuration.BaseURL)
	return configuration
}

// NodeFor returns the default node for a zone.
func (config Configuration) NodeFor(zone string) int {
	if node, ok := config.DefaultNode[zone]; ok {
		return node
	}
	return fallbackNode
}
