package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo defaults.
const (
	DefaultMongoDatabase   = "untwist"
	DefaultMongoCollection = "snapshots"
)

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI            string
	Database       string // default DefaultMongoDatabase
	Collection     string // default DefaultMongoCollection
	ConnectTimeout time.Duration
}

// MongoStore keeps snapshots in a MongoDB collection.
//
// Summary fields are stored as top-level document fields so that listing
// does not load graphs. The full snapshot is stored as its JSON encoding,
// which keeps attribute numbers in their literal form.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDoc struct {
	ID        string    `bson:"_id"`
	Source    string    `bson:"source"`
	DumpHash  string    `bson:"dumpHash"`
	CreatedAt time.Time `bson:"createdAt"`
	Nodes     int       `bson:"nodes"`
	Edges     int       `bson:"edges"`
	Warnings  int       `bson:"warnings"`
	Body      []byte    `bson:"body,omitempty"`
}

// NewMongoStore connects to cfg.URI, pings the server, and ensures the
// createdAt index exists.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultMongoCollection
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout).SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongo: create index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// Put implements Store.
func (s *MongoStore) Put(ctx context.Context, snap *Snapshot) error {
	doc, err := toDoc(snap)
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: put %s: %w", snap.ID, err)
	}
	return nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	return s.findOne(ctx, bson.M{"_id": id}, options.FindOne())
}

// Latest implements Store.
func (s *MongoStore) Latest(ctx context.Context) (*Snapshot, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	return s.findOne(ctx, bson.M{}, opts)
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*Snapshot, error) {
	var doc mongoDoc
	err := s.coll.FindOne(ctx, filter, opts).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: find: %w", err)
	}
	return fromDoc(doc)
}

// List implements Store.
func (s *MongoStore) List(ctx context.Context, limit int) ([]Summary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"body": 0})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list: %w", err)
	}
	var docs []mongoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: list: %w", err)
	}
	out := make([]Summary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.summary())
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toDoc(snap *Snapshot) (mongoDoc, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return mongoDoc{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	sum := snap.Summary()
	return mongoDoc{
		ID:        sum.ID,
		Source:    sum.Source,
		DumpHash:  sum.DumpHash,
		CreatedAt: sum.CreatedAt,
		Nodes:     sum.Nodes,
		Edges:     sum.Edges,
		Warnings:  sum.Warnings,
		Body:      body,
	}, nil
}

func fromDoc(doc mongoDoc) (*Snapshot, error) {
	snap, err := decode(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", doc.ID, err)
	}
	return snap, nil
}

func (d mongoDoc) summary() Summary {
	return Summary{
		ID:        d.ID,
		Source:    d.Source,
		DumpHash:  d.DumpHash,
		CreatedAt: d.CreatedAt,
		Nodes:     d.Nodes,
		Edges:     d.Edges,
		Warnings:  d.Warnings,
	}
}

var _ Store = (*MongoStore)(nil)
