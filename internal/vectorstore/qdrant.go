// Package vectorstore wraps the Qdrant gRPC client with the collection
// lifecycle, batch upsert, filtered delete, and dense-vector search
// operations the ingestion pipeline and search engine need. Grounded on
// internal/persistence/databases/qdrant_vector.go in the teacher repo,
// generalized from its single-point Upsert/Delete/SimilaritySearch trio
// into the batched, filterable, payload-indexed operations spec §3/§4.1/§4.7
// require.
package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"qdrantloader/internal/apperror"
	"qdrantloader/internal/model"
)

// PayloadIDField stores the caller's original string ID, since Qdrant point
// IDs must be a UUID or an unsigned integer (teacher's PAYLOAD_ID_FIELD
// constant, same convention).
const PayloadIDField = "_original_id"

// Store wraps a Qdrant collection.
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  int
	distance   string
}

// Config configures Open.
type Config struct {
	URL            string
	APIKey         string
	CollectionName string
	Dimension      int
	Distance       string // cosine|l2|euclidean|ip|dot|manhattan
}

// Open connects to Qdrant and ensures the collection and its payload
// indexes exist.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.CollectionName == "" {
		return nil, apperror.New(apperror.KindConfiguration, "collection name is required")
	}
	if cfg.Dimension <= 0 {
		return nil, apperror.New(apperror.KindConfiguration, "vector dimension must be > 0")
	}

	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, "parsing qdrant url", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := parsed.Port()
	if portStr == "" {
		portStr = "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, "invalid qdrant port", err)
	}

	qcfg := &qdrant.Config{Host: host, Port: port}
	if parsed.Scheme == "https" {
		qcfg.UseTLS = true
	}
	if cfg.APIKey != "" {
		qcfg.APIKey = cfg.APIKey
	} else if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		qcfg.APIKey = apiKey
	}

	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConnection, "creating qdrant client", err)
	}

	s := &Store{
		client:     client,
		collection: cfg.CollectionName,
		dimension:  cfg.Dimension,
		distance:   strings.ToLower(strings.TrimSpace(cfg.Distance)),
	}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return apperror.Wrap(apperror.KindConnection, "checking collection existence", err)
	}
	if !exists {
		var dist qdrant.Distance
		switch s.distance {
		case "l2", "euclidean":
			dist = qdrant.Distance_Euclid
		case "ip", "dot":
			dist = qdrant.Distance_Dot
		case "manhattan":
			dist = qdrant.Distance_Manhattan
		default:
			dist = qdrant.Distance_Cosine
		}
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.dimension),
				Distance: dist,
			}),
		})
		if err != nil {
			return apperror.Wrap(apperror.KindConnection, "creating collection", err)
		}
	}
	return s.ensurePayloadIndexes(ctx)
}

// ensurePayloadIndexes creates a keyword index on every field in
// model.RequiredPayloadIndexFields. CreateFieldIndex is idempotent against
// an already-indexed field, so this runs unconditionally on every startup.
func (s *Store) ensurePayloadIndexes(ctx context.Context) error {
	for _, field := range model.RequiredPayloadIndexFields {
		fieldType := qdrant.FieldType_FieldTypeKeyword
		switch field {
		case "created_at", "updated_at":
			fieldType = qdrant.FieldType_FieldTypeKeyword // ISO8601 strings, compared lexically
		case "is_attachment", "is_converted":
			fieldType = qdrant.FieldType_FieldTypeBool
		}
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      fieldType.Enum(),
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return apperror.Wrap(apperror.KindConnection, fmt.Sprintf("creating payload index on %q", field), err)
		}
	}
	return nil
}

// pointID derives a Qdrant-legal point ID (UUID or uint) from an arbitrary
// string ID, same scheme as the teacher: pass real UUIDs through, otherwise
// hash deterministically and remember the original under PayloadIDField.
func pointID(id string) (string, bool) {
	if _, err := uuid.Parse(id); err == nil {
		return id, false
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String(), true
}

// UpsertPoints writes points in a single batched call. Called with
// batches sized to config.pipeline.upsert_batch_size (spec §4.3).
func (s *Store) UpsertPoints(ctx context.Context, points []model.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	out := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		uuidStr, hashed := pointID(p.ID)
		payload := make(map[string]any, len(p.Payload)+1)
		for k, v := range p.Payload {
			payload[k] = v
		}
		if hashed {
			payload[PayloadIDField] = p.ID
		}
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		out = append(out, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuidStr),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         out,
		Wait:           &wait,
	})
	if err != nil {
		return apperror.Wrap(apperror.KindConnection, "upserting points", err)
	}
	return nil
}

// DeleteByDocumentID removes every point whose payload document_id matches,
// implementing the "delete then re-upsert" update strategy (spec §5/§9):
// callers delete a document's existing chunk set before writing its new one
// so a shrinking document doesn't leave orphaned trailing chunks behind.
func (s *Store) DeleteByDocumentID(ctx context.Context, documentID string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentID)},
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return apperror.Wrap(apperror.KindConnection, fmt.Sprintf("deleting points for document %q", documentID), err)
	}
	return nil
}

// Filter is a conjunction of exact-match payload conditions, used for
// spec §4.7 project scoping.
type Filter struct {
	Must    map[string]string
	MustNot map[string]string
}

func (f Filter) toQdrant() *qdrant.Filter {
	if len(f.Must) == 0 && len(f.MustNot) == 0 {
		return nil
	}
	qf := &qdrant.Filter{}
	for k, v := range f.Must {
		qf.Must = append(qf.Must, qdrant.NewMatch(k, v))
	}
	for k, v := range f.MustNot {
		qf.MustNot = append(qf.MustNot, qdrant.NewMatch(k, v))
	}
	return qf
}

// Hit is one scored point returned from Search, with its full payload so
// callers can reconstruct a model.SearchResult without a second round trip.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Search runs a dense k-NN query, optionally scoped by Filter, and returns
// up to limit hits ordered by descending score (spec §4.7).
func (s *Store) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	lim := uint64(limit)

	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &lim,
		Filter:         filter.toQdrant(),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConnection, "searching collection", err)
	}

	hits := make([]Hit, 0, len(result))
	for _, point := range result {
		id := point.Id.GetUuid()
		if id == "" {
			id = point.Id.String()
		}
		payload := make(map[string]any, len(point.Payload))
		var originalID string
		for k, v := range point.Payload {
			if k == PayloadIDField {
				originalID = v.GetStringValue()
				continue
			}
			payload[k] = valueToAny(v)
		}
		if originalID != "" {
			id = originalID
		}
		hits = append(hits, Hit{ID: id, Score: float64(point.Score), Payload: payload})
	}
	return hits, nil
}

// valueToAny converts a qdrant.Value into a plain Go value so Hit.Payload
// can be merged back onto model.SearchResult fields generically. A list
// whose elements are all strings comes back as []string, the type of
// SearchResult's list fields.
func valueToAny(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_ListValue:
		strs := make([]string, 0, len(k.ListValue.Values))
		for _, e := range k.ListValue.Values {
			if s, ok := e.GetKind().(*qdrant.Value_StringValue); ok {
				strs = append(strs, s.StringValue)
			}
		}
		if len(strs) == len(k.ListValue.Values) {
			return strs
		}
		out := make([]any, 0, len(k.ListValue.Values))
		for _, e := range k.ListValue.Values {
			out = append(out, valueToAny(e))
		}
		return out
	case *qdrant.Value_StructValue:
		out := make(map[string]any, len(k.StructValue.Fields))
		for key, e := range k.StructValue.Fields {
			out[key] = valueToAny(e)
		}
		return out
	default:
		return nil
	}
}

// Scroll pages through every point matching filter (no vector similarity
// involved), returning up to limit hits with full payload. Backs the hybrid
// engine's sparse/keyword search (spec §4.7 step 4: "issue a keyword/BM25
// style query against the vector store's scroll/filter API").
func (s *Store) Scroll(ctx context.Context, limit int, filter Filter) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	lim := uint32(limit)
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         filter.toQdrant(),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConnection, "scrolling collection", err)
	}

	hits := make([]Hit, 0, len(points))
	for _, point := range points {
		id := point.Id.GetUuid()
		if id == "" {
			id = point.Id.String()
		}
		payload := make(map[string]any, len(point.Payload))
		var originalID string
		for k, v := range point.Payload {
			if k == PayloadIDField {
				originalID = v.GetStringValue()
				continue
			}
			payload[k] = valueToAny(v)
		}
		if originalID != "" {
			id = originalID
		}
		hits = append(hits, Hit{ID: id, Payload: payload})
	}
	return hits, nil
}

// Dimension returns the configured vector size.
func (s *Store) Dimension() int { return s.dimension }

// Close releases the underlying gRPC connection.
func (s *Store) Close() error { return s.client.Close() }
