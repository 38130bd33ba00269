// Audit trail for provisioning attempts.  Every terminal outcome of a
// workflow run is recorded so failed commands against live equipment can be
// reviewed after the fact.
package auditdb

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	provision815 "github.com/luysmarlcm/provision815/structs"
)

// Attempt is one provisioning attempt as stored in the provision_attempts
// collection.
type Attempt struct {
	AttemptID    string    `bson:"attempt_id"`
	RunID        string    `bson:"run_id"`
	Zone         string    `bson:"zone"`
	ConnectionID string    `bson:"connection_id"`
	Serial       string    `bson:"serial,omitempty"`
	Profile      string    `bson:"connector_profile,omitempty"`
	State        string    `bson:"state"`
	Status       string    `bson:"status"`
	Message      string    `bson:"message,omitempty"`
	Logs         []string  `bson:"logs,omitempty"`
	Condition    string    `bson:"condition,omitempty"`
	Time         time.Time `bson:"time"`
}

type Store struct {
	DB *mongo.Database
}

// Connect opens the audit database.
func Connect(uri string, database string) (*Store, error) {
	client, err := mongo.Connect(context.TODO(), options.Client().ApplyURI(uri))
	if err != nil {
		log.Errorf("Problem connecting to MongoDB - %v", err)
		return nil, err
	}
	if err = client.Ping(context.TODO(), nil); err != nil {
		log.Errorf("Problem reaching MongoDB - %v", err)
		return nil, err
	}
	log.Info("Connected to audit database " + database)
	return &Store{DB: client.Database(database)}, nil
}

func (s *Store) Disconnect() {
	if s != nil && s.DB != nil {
		s.DB.Client().Disconnect(context.TODO())
	}
}

// RecordOutcome satisfies the workflow engine's outcome sink.
func (s *Store) RecordOutcome(event provision815.OutcomeEvent) error {
	attempt := Attempt{
		AttemptID:    event.EventID,
		RunID:        event.RunID,
		Zone:         event.Zone,
		ConnectionID: event.ConnectionID,
		Serial:       event.Serial,
		Profile:      event.Profile,
		State:        event.State.String(),
		Time:         event.Time,
	}
	if event.Outcome != nil {
		attempt.Status = event.Outcome.Status
		attempt.Message = event.Outcome.Message
		attempt.Logs = event.Outcome.Logs
		attempt.Condition = string(event.Outcome.Condition)
	}
	return s.Record(attempt)
}

// Record upserts an attempt by its attempt id.
func (s *Store) Record(attempt Attempt) error {
	update := bson.D{{Key: "$set", Value: attempt}}
	opts := options.Update().SetUpsert(true)
	_, err := s.DB.Collection("provision_attempts").UpdateOne(context.TODO(), bson.D{{Key: "attempt_id", Value: attempt.AttemptID}}, update, opts)
	if err != nil {
		log.Errorf("Problem recording provision attempt %v - %v", attempt.AttemptID, err)
	}
	return err
}

// RunAttempts returns the attempts of one workflow run, oldest first.
func (s *Store) RunAttempts(runID string) (attempts []Attempt, err error) {
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: 1}})
	cursor, err := s.DB.Collection("provision_attempts").Find(context.TODO(), bson.D{{Key: "run_id", Value: runID}}, opts)
	if err != nil {
		log.Errorf("Problem getting attempts for run %v - %v", runID, err)
		return
	}
	err = cursor.All(context.TODO(), &attempts)
	return
}
