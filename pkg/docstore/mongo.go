package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/angelmondragon/wayfarer-backend/pkg/config"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

// Mongo implements Store on a MongoDB database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logg   *logger.Logger
}

// Connect dials MongoDB and verifies the primary is reachable.
func Connect(ctx context.Context, cfg config.MongoConfig, logg *logger.Logger) (*Mongo, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, errors.New("mongo uri is required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "database", cfg.Database), "mongo connection established")
	}
	return &Mongo{client: client, db: client.Database(cfg.Database), logg: logg}, nil
}

// NewMongo wraps an existing database handle.
func NewMongo(db *mongo.Database, logg *logger.Logger) *Mongo {
	return &Mongo{client: db.Client(), db: db, logg: logg}
}

func (m *Mongo) Create(ctx context.Context, collection string, doc any) (string, error) {
	res, err := m.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	return idOf(res.InsertedID), nil
}

func (m *Mongo) Update(ctx context.Context, collection, id string, set Fields) (string, error) {
	if id == "" {
		return "", ErrIDRequired
	}
	matched, err := m.UpdateWhere(ctx, collection, Filter{"_id": id}, set)
	if err != nil {
		return "", err
	}
	if !matched {
		return "", ErrNotFound
	}
	return id, nil
}

func (m *Mongo) UpdateWhere(ctx context.Context, collection string, filter Filter, set Fields) (bool, error) {
	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M(filter), bson.M{"$set": bson.M(set)})
	if err != nil {
		return false, fmt.Errorf("update %s: %w", collection, err)
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) Get(ctx context.Context, collection, id string, out any) (bool, error) {
	if id == "" {
		return false, ErrIDRequired
	}
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return true, nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) (bool, error) {
	if id == "" {
		return false, ErrIDRequired
	}
	res, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return res.DeletedCount > 0, nil
}

func (m *Mongo) Find(ctx context.Context, collection string, filter Filter, opts FindOptions, out any) error {
	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		sort := bson.D{}
		for _, s := range opts.Sort {
			dir := 1
			if s.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: s.Field, Value: dir})
		}
		findOpts.SetSort(sort)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if filter == nil {
		filter = Filter{}
	}

	cursor, err := m.db.Collection(collection).Find(ctx, bson.M(filter), findOpts)
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID any `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument"`
}

// Subscribe opens a change stream. Filter keys match against the full
// document, so deletes are only delivered for an empty filter or an _id match.
func (m *Mongo) Subscribe(ctx context.Context, collection string, filter Filter, fn func(Change)) (Unsubscribe, error) {
	match := bson.M{}
	for k, v := range filter {
		if k == "_id" {
			match["documentKey._id"] = v
			continue
		}
		match["fullDocument."+k] = v
	}
	pipeline := mongo.Pipeline{}
	if len(match) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := m.db.Collection(collection).Watch(streamCtx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", collection, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stream.Close(context.Background())
		for stream.Next(streamCtx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				m.warn(streamCtx, collection, err)
				continue
			}
			fn(Change{
				Operation: Operation(ev.OperationType),
				ID:        idOf(ev.DocumentKey.ID),
				document:  ev.FullDocument,
			})
		}
		if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
			m.warn(streamCtx, collection, err)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}

// EnsureIndex creates an ascending compound index on keys if missing.
func (m *Mongo) EnsureIndex(ctx context.Context, collection string, keys ...string) error {
	doc := bson.D{}
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: 1})
	}
	_, err := m.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: doc})
	if err != nil {
		return fmt.Errorf("index %s%v: %w", collection, keys, err)
	}
	return nil
}

// Ping verifies the primary is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) warn(ctx context.Context, collection string, err error) {
	if m.logg == nil {
		return
	}
	ctx = m.logg.WithFields(ctx, map[string]any{"collection": collection, "error": err.Error()})
	m.logg.Warn(ctx, "change stream error")
}
