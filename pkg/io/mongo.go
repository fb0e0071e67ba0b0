package io

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/storyline/pkg/errors"
)

// MongoConfig configures [NewMongoSink].
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	// Name is the dialogue name; it becomes the document _id.
	Name string
}

// replacer is the subset of *mongo.Collection used by MongoSink.
type replacer interface {
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// MongoSink publishes a dialogue as a single document:
//
//	{_id: <name>, name: <name>, lines: [...records], updated_at: <time>}
//
// Each export replaces the previous document for the same name.
type MongoSink struct {
	client *mongo.Client
	coll   replacer
	name   string
	label  string
	now    func() time.Time
}

// NewMongoSink connects to MongoDB and returns a sink for cfg.Name.
func NewMongoSink(ctx context.Context, cfg MongoConfig) (*MongoSink, error) {
	if cfg.URI == "" {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "mongo uri is not configured")
	}
	if cfg.Name == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "dialogue name is required for mongo export")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "connect to mongo")
	}
	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	s := newMongoSink(coll, cfg)
	s.client = client
	return s, nil
}

func newMongoSink(coll replacer, cfg MongoConfig) *MongoSink {
	return &MongoSink{
		coll:  coll,
		name:  cfg.Name,
		label: fmt.Sprintf("mongo:%s.%s/%s", cfg.Database, cfg.Collection, cfg.Name),
		now:   time.Now,
	}
}

// Name returns "mongo:<db>.<collection>/<name>".
func (s *MongoSink) Name() string { return s.label }

// Write converts the JSON export to BSON and upserts the document.
func (s *MongoSink) Write(ctx context.Context, data []byte) error {
	lines, err := linesFromJSON(data)
	if err != nil {
		return errs.Wrap(errs.ErrCodeExportFailed, err, "convert export for %s", s.label)
	}
	doc := bson.D{
		{Key: "_id", Value: s.name},
		{Key: "name", Value: s.name},
		{Key: "lines", Value: lines},
		{Key: "updated_at", Value: s.now().UTC()},
	}
	_, err = s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: s.name}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errs.Wrap(errs.ErrCodeExportFailed, err, "export to %s", s.label)
	}
	return nil
}

// Close disconnects the client, if the sink owns one.
func (s *MongoSink) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// linesFromJSON parses the exported array as relaxed extended JSON so key
// order and integer types survive the conversion.
func linesFromJSON(data []byte) (bson.A, error) {
	wrapped := make([]byte, 0, len(data)+12)
	wrapped = append(wrapped, `{"lines":`...)
	wrapped = append(wrapped, data...)
	wrapped = append(wrapped, '}')

	var doc struct {
		Lines bson.A `bson:"lines"`
	}
	if err := bson.UnmarshalExtJSON(wrapped, false, &doc); err != nil {
		return nil, err
	}
	if doc.Lines == nil {
		doc.Lines = bson.A{}
	}
	return doc.Lines, nil
}
