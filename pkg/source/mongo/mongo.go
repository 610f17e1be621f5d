// Package mongo reads governance data from MongoDB collections named like
// the SQL tables: agent_states, governance_log, transactions and
// simulation_runs.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/source"
)

// Name is the backend name.
const Name = "mongo"

// DefaultDatabase is used when the URI names none.
const DefaultDatabase = "multi_agent_gov"

const listLimit = 100

// Source queries a MongoDB database. It is safe for concurrent use.
type Source struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri and pings the primary. database overrides the
// database named in the URI.
func Open(ctx context.Context, uri, database string) (*Source, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName("govdash"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "ping mongo")
	}
	if database == "" {
		database = DefaultDatabase
	}
	return &Source{client: client, db: client.Database(database)}, nil
}

// New wraps a database handle. Close does not disconnect its client.
func New(db *mongo.Database) *Source {
	return &Source{db: db}
}

// Name implements source.Source.
func (s *Source) Name() string { return Name }

// Agents returns the newest agent_states document per agent_id.
func (s *Source) Agents(ctx context.Context) ([]governance.Agent, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "agent_id", Value: 1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$agent_id"},
			{Key: "doc", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
		}}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$doc"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "agent_id", Value: 1}}}},
	}
	cur, err := s.db.Collection("agent_states").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrap(ctx, err, "aggregate agent_states")
	}
	recs, err := decodeAll(ctx, cur)
	if err != nil {
		return nil, err
	}
	return governance.NormalizeAgents(recs), nil
}

func (s *Source) find(ctx context.Context, coll string, sortSpec bson.D, limit int64) ([]governance.Record, error) {
	opts := options.Find().SetSort(sortSpec)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.db.Collection(coll).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, wrap(ctx, err, "find %s", coll)
	}
	return decodeAll(ctx, cur)
}

// Proposals returns governance_log documents, newest first.
func (s *Source) Proposals(ctx context.Context) ([]governance.Proposal, error) {
	recs, err := s.find(ctx, "governance_log", bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, listLimit)
	if err != nil {
		return nil, err
	}
	out := make([]governance.Proposal, len(recs))
	for i, rec := range recs {
		out[i] = governance.NormalizeProposal(rec)
	}
	return out, nil
}

// Rules returns governance_log documents, oldest first.
func (s *Source) Rules(ctx context.Context) ([]governance.RuleChange, error) {
	recs, err := s.find(ctx, "governance_log", bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}, listLimit)
	if err != nil {
		return nil, err
	}
	out := make([]governance.RuleChange, len(recs))
	for i, rec := range recs {
		out[i] = governance.NormalizeRuleChange(rec)
	}
	return out, nil
}

// Conflicts returns the newest transactions.
func (s *Source) Conflicts(ctx context.Context) ([]governance.Conflict, error) {
	recs, err := s.find(ctx, "transactions", bson.D{{Key: "_id", Value: -1}}, listLimit)
	if err != nil {
		return nil, err
	}
	out := make([]governance.Conflict, len(recs))
	for i, rec := range recs {
		out[i] = governance.NormalizeConflict(rec)
	}
	return out, nil
}

// Metrics reads the newest agent_states document.
func (s *Source) Metrics(ctx context.Context) (governance.Metrics, error) {
	recs, err := s.find(ctx, "agent_states", bson.D{{Key: "_id", Value: -1}}, 1)
	if err != nil {
		return governance.Metrics{}, err
	}
	if len(recs) == 0 {
		return governance.Metrics{}, nil
	}
	return governance.NormalizeMetrics(recs[0]), nil
}

// idFilter matches a document by its id field or by its ObjectID.
func idFilter(id string) bson.D {
	alts := bson.A{bson.D{{Key: "id", Value: id}}, bson.D{{Key: "_id", Value: id}}}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		alts = append(alts, bson.D{{Key: "_id", Value: oid}})
	}
	return bson.D{{Key: "$or", Value: alts}}
}

// CastVote atomically increments the votes_<type> field.
func (s *Source) CastVote(ctx context.Context, proposalID string, vote governance.VoteType) (governance.Proposal, error) {
	if err := source.ValidateVote(proposalID, vote); err != nil {
		return governance.Proposal{}, err
	}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: vote.Column(), Value: 1}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc bson.M
	err := s.db.Collection("governance_log").FindOneAndUpdate(ctx, idFilter(proposalID), update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return governance.Proposal{}, errors.New(errors.ErrCodeProposalNotFound, "proposal %q not found", proposalID)
	}
	if err != nil {
		return governance.Proposal{}, wrap(ctx, err, "update governance_log")
	}
	return governance.NormalizeProposal(toRecord(doc)), nil
}

// StartSimulation inserts a simulation_runs document.
func (s *Source) StartSimulation(ctx context.Context, p governance.SimulationParams) (governance.SimulationRun, error) {
	if err := p.Validate(); err != nil {
		return governance.SimulationRun{}, err
	}
	started := time.Now().UTC().Truncate(time.Millisecond)
	doc := bson.D{
		{Key: "speed", Value: p.Speed},
		{Key: "agent_count", Value: p.AgentCount},
		{Key: "transaction_rate", Value: p.TransactionRate},
		{Key: "proposal_frequency", Value: p.ProposalFrequency},
		{Key: "conflict_probability", Value: p.ConflictProbability},
		{Key: "created_at", Value: started},
	}
	res, err := s.db.Collection("simulation_runs").InsertOne(ctx, doc)
	if err != nil {
		return governance.SimulationRun{}, wrap(ctx, err, "insert simulation_runs")
	}
	return governance.SimulationRun{ID: idString(res.InsertedID), Params: p, StartedAt: started}, nil
}

// Health pings the server.
func (s *Source) Health(ctx context.Context) (source.Health, error) {
	if err := s.db.Client().Ping(ctx, nil); err != nil {
		return source.Health{Status: "error", Message: "Database connection failed", Database: "disconnected"},
			wrap(ctx, err, "ping mongo")
	}
	return source.Health{Status: "ok", Message: "database reachable", Database: "connected", Time: time.Now().UTC()}, nil
}

// CheckTables counts the documents of every backing collection.
func (s *Source) CheckTables(ctx context.Context) (map[string]source.TableStatus, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, wrap(ctx, err, "list collections")
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	out := make(map[string]source.TableStatus, len(source.Tables))
	for _, t := range source.Tables {
		if !present[t] {
			out[t] = source.TableStatus{Exists: false, Error: "collection " + t + " does not exist"}
			continue
		}
		n, err := s.db.Collection(t).EstimatedDocumentCount(ctx)
		if err != nil {
			out[t] = source.TableStatus{Exists: true, Error: err.Error()}
			continue
		}
		out[t] = source.TableStatus{Exists: true, Count: n}
	}
	return out, nil
}

// Columns reports the fields of the newest document in the collection.
func (s *Source) Columns(ctx context.Context, table string) ([]source.Column, error) {
	if table == "" {
		return nil, errors.New(errors.ErrCodeInvalidTable, "table name is required")
	}
	var raw bson.Raw
	err := s.db.Collection(table).FindOne(ctx, bson.D{}, options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return []source.Column{}, nil
	}
	if err != nil {
		return nil, wrap(ctx, err, "sample %s", table)
	}
	elems, err := raw.Elements()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read %s document", table)
	}
	cols := make([]source.Column, len(elems))
	for i, e := range elems {
		cols[i] = source.Column{Name: e.Key(), DataType: e.Value().Type.String()}
	}
	return cols, nil
}

// Close disconnects the client when the source opened it.
func (s *Source) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]governance.Record, error) {
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap(ctx, err, "decode documents")
	}
	out := make([]governance.Record, len(docs))
	for i, d := range docs {
		out[i] = toRecord(d)
	}
	return out, nil
}

// toRecord converts BSON values into the plain Go values records carry.
// The document _id doubles as id when the document has none.
func toRecord(doc bson.M) governance.Record {
	rec := make(governance.Record, len(doc))
	for k, v := range doc {
		rec[k] = plain(v)
	}
	if _, ok := rec["id"]; !ok {
		if id, ok := doc["_id"]; ok {
			rec["id"] = idString(id)
		}
	}
	return rec
}

func plain(v any) any {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Decimal128:
		return x.String()
	case bson.M:
		return map[string]any(toRecord(x))
	case bson.D:
		m := make(bson.M, len(x))
		for _, e := range x {
			m[e.Key] = e.Value
		}
		return map[string]any(toRecord(m))
	case bson.A:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = plain(item)
		}
		return items
	}
	return v
}

func idString(id any) string {
	switch x := id.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case string:
		return x
	}
	rec := governance.Record{"id": id}
	s, _ := rec.String("id")
	return s
}

func wrap(ctx context.Context, err error, format string, args ...any) error {
	if ctx.Err() != nil || mongo.IsTimeout(err) {
		return errors.Wrap(errors.ErrCodeTimeout, err, format, args...)
	}
	return errors.Wrap(errors.ErrCodeSourceUnavailable, err, format, args...)
}

var (
	_ source.Source    = (*Source)(nil)
	_ source.Inspector = (*Source)(nil)
)
