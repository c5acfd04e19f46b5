package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	sensorCollection     = "sensor_data"
	doorCollection       = "door_status"
	controlLogCollection = "control_logs"
)

type sensorDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	DeviceID   string             `bson:"device_id"`
	SensorType string             `bson:"sensor_type"`
	Value      float64            `bson:"value"`
	Unit       string             `bson:"unit,omitempty"`
	Status     *string            `bson:"status,omitempty"`
	Timestamp  int64              `bson:"timestamp"`
	CreatedAt  time.Time          `bson:"created_at"`
}

type doorDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	DeviceID  string             `bson:"device_id"`
	Status    string             `bson:"status"`
	Timestamp int64              `bson:"timestamp"`
	CreatedAt time.Time          `bson:"created_at"`
}

type controlLogDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	DeviceType string             `bson:"device_type"`
	Command    string             `bson:"command"`
	Value      *string            `bson:"value"`
	Source     string             `bson:"source"`
	Timestamp  int64              `bson:"timestamp"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// MongoTelemetryStore keeps the three tables as collections. Insertion order is
// taken from the ObjectID, so records carry no numeric ID.
type MongoTelemetryStore struct {
	client  *mongo.Client
	sensors *mongo.Collection
	doors   *mongo.Collection
	logs    *mongo.Collection
}

func NewMongoTelemetryStore(client *mongo.Client, database string) *MongoTelemetryStore {
	db := client.Database(database)
	return &MongoTelemetryStore{
		client:  client,
		sensors: db.Collection(sensorCollection),
		doors:   db.Collection(doorCollection),
		logs:    db.Collection(controlLogCollection),
	}
}

// ConnectMongo dials uri and pings the primary within timeout
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping MongoDB: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the lookup index used by latest/history queries
func (s *MongoTelemetryStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.sensors.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sensor_type", Value: 1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create sensor_data index: %w", err)
	}
	return nil
}

func (s *MongoTelemetryStore) InsertSensorRecord(ctx context.Context, rec mqtmodels.SensorRecord) error {
	doc := sensorDoc{
		DeviceID:   rec.DeviceID,
		SensorType: string(rec.SensorType),
		Value:      rec.Value,
		Unit:       rec.Unit,
		Status:     rec.Status,
		Timestamp:  rec.Timestamp,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.sensors.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert sensor record: %w", err)
	}
	return nil
}

func (s *MongoTelemetryStore) GetLatestSensorRecord(ctx context.Context, sensorType mqtmodels.Channel) (*mqtmodels.SensorRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})

	var doc sensorDoc
	err := s.sensors.FindOne(ctx, bson.M{"sensor_type": string(sensorType)}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	rec := doc.record()
	return &rec, nil
}

func (s *MongoTelemetryStore) GetSensorHistory(ctx context.Context, sensorType mqtmodels.Channel, limit int) ([]mqtmodels.SensorRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.sensors.Find(ctx, bson.M{"sensor_type": string(sensorType)}, opts)
	if err != nil {
		return nil, fmt.Errorf("query sensor history: %w", err)
	}

	var docs []sensorDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sensor history: %w", err)
	}

	records := make([]mqtmodels.SensorRecord, len(docs))
	for i, doc := range docs {
		records[len(docs)-1-i] = doc.record()
	}
	return records, nil
}

func (s *MongoTelemetryStore) CountSensorRecords(ctx context.Context) (int64, error) {
	return s.sensors.CountDocuments(ctx, bson.D{})
}

func (s *MongoTelemetryStore) InsertDoorStatus(ctx context.Context, rec mqtmodels.DoorStatusRecord) error {
	doc := doorDoc{
		DeviceID:  rec.DeviceID,
		Status:    rec.Status,
		Timestamp: rec.Timestamp,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.doors.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert door status: %w", err)
	}
	return nil
}

func (s *MongoTelemetryStore) GetLatestDoorStatus(ctx context.Context) (*mqtmodels.DoorStatusRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})

	var doc doorDoc
	if err := s.doors.FindOne(ctx, bson.D{}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return &mqtmodels.DoorStatusRecord{
		DeviceID:  doc.DeviceID,
		Status:    doc.Status,
		Timestamp: doc.Timestamp,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *MongoTelemetryStore) CountDoorRecords(ctx context.Context) (int64, error) {
	return s.doors.CountDocuments(ctx, bson.D{})
}

func (s *MongoTelemetryStore) InsertControlLog(ctx context.Context, entry mqtmodels.ControlLogEntry) error {
	source := entry.Source
	if source == "" {
		source = mqtmodels.DefaultCommandSource
	}
	doc := controlLogDoc{
		DeviceType: string(entry.DeviceType),
		Command:    entry.Command,
		Value:      entry.Value,
		Source:     source,
		Timestamp:  entry.Timestamp,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.logs.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert control log: %w", err)
	}
	return nil
}

func (s *MongoTelemetryStore) ListControlLogs(ctx context.Context, limit int) ([]mqtmodels.ControlLogEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.logs.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("query control logs: %w", err)
	}

	var docs []controlLogDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode control logs: %w", err)
	}

	entries := make([]mqtmodels.ControlLogEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, mqtmodels.ControlLogEntry{
			DeviceType: mqtmodels.ControlDevice(doc.DeviceType),
			Command:    doc.Command,
			Value:      doc.Value,
			Source:     doc.Source,
			Timestamp:  doc.Timestamp,
			CreatedAt:  doc.CreatedAt,
		})
	}
	return entries, nil
}

func (s *MongoTelemetryStore) CountControlLogs(ctx context.Context) (int64, error) {
	return s.logs.CountDocuments(ctx, bson.D{})
}

func (s *MongoTelemetryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoTelemetryStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (d sensorDoc) record() mqtmodels.SensorRecord {
	return mqtmodels.SensorRecord{
		DeviceID:   d.DeviceID,
		SensorType: mqtmodels.Channel(d.SensorType),
		Value:      d.Value,
		Unit:       d.Unit,
		Status:     d.Status,
		Timestamp:  d.Timestamp,
		CreatedAt:  d.CreatedAt,
	}
}
