package storage

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"movie-catalog-bot/internal/catalog"
)

type Mongo struct {
	client   *mongo.Client
	col      *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

type movieDoc struct {
	ID          int64      `bson:"_id"`
	OwnerID     int64      `bson:"owner_id"`
	Title       string     `bson:"title"`
	TitleLower  string     `bson:"title_lower"`
	Genre       string     `bson:"genre"`
	Description string     `bson:"description,omitempty"`
	PosterRef   string     `bson:"poster_ref,omitempty"`
	AddedAt     time.Time  `bson:"added_at"`
	Watched     bool       `bson:"watched"`
	WatchedAt   *time.Time `bson:"watched_at,omitempty"`
}

func (d movieDoc) movie() catalog.Movie {
	m := catalog.Movie{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Title:       d.Title,
		Genre:       catalog.Genre(d.Genre),
		Description: d.Description,
		PosterRef:   d.PosterRef,
		AddedAt:     d.AddedAt.UTC(),
		Watched:     d.Watched,
	}
	if d.WatchedAt != nil {
		t := d.WatchedAt.UTC()
		m.WatchedAt = &t
	}
	return m
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("MONGODB_URI is empty")
	}
	if database == "" {
		database = "moviebot"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	db := client.Database(database)
	col := db.Collection("movies")
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "watched", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "genre", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "title_lower", Value: 1}}},
	})
	slog.Info("connected to MongoDB", "db", database)
	return &Mongo{
		client:   client,
		col:      col,
		counters: db.Collection("counters"),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (m *Mongo) nextID(ctx context.Context) (int64, error) {
	var c struct {
		Seq int64 `bson:"seq"`
	}
	err := m.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "movies"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	return c.Seq, err
}

func mongoSortKey(f catalog.OrderField) string {
	if f == catalog.OrderByID {
		return "_id"
	}
	return string(f)
}

func (m *Mongo) List(ctx context.Context, ownerID int64, opts catalog.ListOptions) ([]catalog.Movie, error) {
	filter := bson.M{"owner_id": ownerID}
	if opts.Watched != nil {
		filter["watched"] = *opts.Watched
	}
	if opts.Genre != "" {
		filter["genre"] = string(opts.Genre)
	}
	field, dir := opts.Order()
	order := -1
	if dir == catalog.Asc {
		order = 1
	}
	sort := bson.D{{Key: mongoSortKey(field), Value: order}}
	if field != catalog.OrderByID {
		sort = append(sort, bson.E{Key: "_id", Value: order})
	}

	cur, err := m.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, unavailable("list movies", err)
	}
	defer cur.Close(ctx)
	items := make([]catalog.Movie, 0)
	for cur.Next(ctx) {
		var d movieDoc
		if err := cur.Decode(&d); err != nil {
			return nil, unavailable("scan movie", err)
		}
		items = append(items, d.movie())
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("list movies", err)
	}
	return items, nil
}

func (m *Mongo) Get(ctx context.Context, ownerID, id int64) (catalog.Movie, error) {
	var d movieDoc
	err := m.col.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return catalog.Movie{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Movie{}, unavailable("get movie", err)
	}
	return d.movie(), nil
}

func (m *Mongo) Create(ctx context.Context, ownerID int64, in catalog.NewMovie) (catalog.Movie, error) {
	id, err := m.nextID(ctx)
	if err != nil {
		return catalog.Movie{}, unavailable("allocate id", err)
	}
	d := movieDoc{
		ID:          id,
		OwnerID:     ownerID,
		Title:       in.Title,
		TitleLower:  strings.ToLower(strings.TrimSpace(in.Title)),
		Genre:       string(in.Genre),
		Description: in.Description,
		PosterRef:   in.PosterRef,
		AddedAt:     m.now().Truncate(time.Millisecond),
	}
	if _, err := m.col.InsertOne(ctx, d); err != nil {
		return catalog.Movie{}, unavailable("create movie", err)
	}
	slog.Info("movie added", "owner_id", ownerID, "id", id, "title", in.Title)
	return d.movie(), nil
}

func (m *Mongo) Update(ctx context.Context, ownerID, id int64, p catalog.Patch) error {
	p = p.Sanitized()
	if p.IsEmpty() {
		return nil
	}
	set := bson.M{}
	unset := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
		set["title_lower"] = strings.ToLower(strings.TrimSpace(*p.Title))
	}
	if p.Genre != nil {
		set["genre"] = string(*p.Genre)
	}
	setOrUnset := func(key, v string) {
		if v == "" {
			unset[key] = ""
			return
		}
		set[key] = v
	}
	if p.Description != nil {
		setOrUnset("description", *p.Description)
	}
	if p.PosterRef != nil {
		setOrUnset("poster_ref", *p.PosterRef)
	}
	if p.Watched != nil {
		set["watched"] = *p.Watched
	}
	if p.WatchedAt != nil {
		if p.WatchedAt.IsZero() {
			unset["watched_at"] = ""
		} else {
			set["watched_at"] = p.WatchedAt.UTC()
		}
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id, "owner_id": ownerID}, update)
	if err != nil {
		return unavailable("update movie", err)
	}
	slog.Info("movie updated", "owner_id", ownerID, "id", id, "fields", p.Fields(), "rows", res.MatchedCount)
	return nil
}

func (m *Mongo) Delete(ctx context.Context, ownerID, id int64) (string, error) {
	var d movieDoc
	err := m.col.FindOneAndDelete(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", catalog.ErrNotFound
	}
	if err != nil {
		return "", unavailable("delete movie", err)
	}
	slog.Info("movie deleted", "owner_id", ownerID, "id", id, "title", d.Title)
	return d.Title, nil
}

func (m *Mongo) ExistsByTitle(ctx context.Context, ownerID int64, title string) (bool, error) {
	n, err := m.col.CountDocuments(ctx,
		bson.M{"owner_id": ownerID, "title_lower": strings.ToLower(strings.TrimSpace(title))},
		options.Count().SetLimit(1))
	if err != nil {
		return false, unavailable("exists by title", err)
	}
	return n > 0, nil
}

func (m *Mongo) SetWatched(ctx context.Context, ownerID, id int64, watched bool) error {
	update := bson.M{"$set": bson.M{"watched": watched, "watched_at": m.now()}}
	if !watched {
		update = bson.M{"$set": bson.M{"watched": false}, "$unset": bson.M{"watched_at": ""}}
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id, "owner_id": ownerID}, update)
	if err != nil {
		return unavailable("set watched", err)
	}
	if res.MatchedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (m *Mongo) Stats(ctx context.Context, ownerID int64) (catalog.Stats, error) {
	var st catalog.Stats
	total, err := m.col.CountDocuments(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return st, unavailable("stats", err)
	}
	watched, err := m.col.CountDocuments(ctx, bson.M{"owner_id": ownerID, "watched": true})
	if err != nil {
		return st, unavailable("stats", err)
	}
	st.Total, st.Watched = int(total), int(watched)
	return st, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
