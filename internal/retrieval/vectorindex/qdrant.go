// Qdrant-backed alternate Vector Index Client (C1), swappable for the
// default chromem-backed Index behind the same Search/Upsert surface.
// Grounded on pkg/databases/qdrant.go's client construction, upsert,
// and search-with-filter logic, adapted from that file's
// interface{}-metadata DatabaseProvider shape to this package's typed
// ragtypes.Document return and precomputed-embedding EmbedFunc seam.
package vectorindex

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

// QdrantIndex implements the same search surface as Index, backed by a
// remote Qdrant collection instead of an embedded chromem database.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	embed      EmbedFunc
}

// QdrantConfig configures the remote connection.
type QdrantConfig struct {
	Host      string
	Port      int
	APIKey    string
	EnableTLS bool
}

// NewQdrant dials a Qdrant instance and returns a QdrantIndex over the
// given collection. The collection is created lazily on first Upsert.
func NewQdrant(cfg QdrantConfig, collection string, embed EmbedFunc) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.EnableTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorindex: connecting to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	if embed == nil {
		embed = HashEmbed
	}
	return &QdrantIndex{client: client, collection: collection, embed: embed}, nil
}

// Upsert embeds content and writes it to the remote collection,
// creating the collection on first use with a vector size matching the
// embedding.
func (idx *QdrantIndex) Upsert(ctx context.Context, id, content string, metadata map[string]string) error {
	vec, err := idx.embed(ctx, content)
	if err != nil {
		return fmt.Errorf("vectorindex: embedding document %q: %w", id, err)
	}

	exists, err := idx.client.CollectionExists(ctx, idx.collection)
	if err != nil {
		return fmt.Errorf("vectorindex: checking collection %q: %w", idx.collection, err)
	}
	if !exists {
		if err := idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: idx.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(len(vec)),
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return fmt.Errorf("vectorindex: creating collection %q: %w", idx.collection, err)
		}
	}

	payload := make(map[string]*qdrant.Value, len(metadata)+1)
	if v, err := qdrant.NewValue(content); err == nil {
		payload["content"] = v
	}
	for k, v := range metadata {
		val, err := qdrant.NewValue(v)
		if err != nil {
			continue
		}
		payload[k] = val
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(vec...),
		Payload: payload,
	}
	_, err = idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("vectorindex: upserting point %q: %w", id, err)
	}
	return nil
}

// Search embeds query and performs a filtered nearest-neighbor search
// against the remote collection, mapping hits to ragtypes.Document with
// Source = SourceVector.
func (idx *QdrantIndex) Search(ctx context.Context, query string, n int, filter map[string]string) ([]ragtypes.Document, error) {
	vec, err := idx.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: embedding query: %w", err)
	}

	req := &qdrant.SearchPoints{
		CollectionName: idx.collection,
		Vector:         vec,
		Limit:          uint64(n),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	}
	if len(filter) > 0 {
		req.Filter = buildFilter(filter)
	}

	result, err := idx.client.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: querying collection %q: %w", idx.collection, err)
	}

	docs := make([]ragtypes.Document, 0, len(result.Result))
	for _, p := range result.Result {
		content := ""
		meta := make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			if v == nil {
				continue
			}
			if k == "content" {
				content = v.GetStringValue()
				continue
			}
			meta[k] = v.GetStringValue()
		}
		score := float64(p.Score)
		docs = append(docs, ragtypes.Document{
			ID:       idOf(p.Id),
			Content:  content,
			Source:   ragtypes.SourceVector,
			Metadata: meta,
			Score:    &score,
		})
	}
	return docs, nil
}

// buildFilter translates a flat key/value filter into an all-must
// keyword-match Qdrant filter, mirroring pkg/databases/qdrant.go's
// buildQdrantFilter.
func buildFilter(filter map[string]string) *qdrant.Filter {
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for key, value := range filter {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: key,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: value},
					},
				},
			},
		})
	}
	return &qdrant.Filter{Must: conditions}
}

func idOf(id *qdrant.PointId) string {
	if id == nil || id.PointIdOptions == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	default:
		return ""
	}
}

// Close releases the underlying gRPC connection.
func (idx *QdrantIndex) Close() error {
	return idx.client.Close()
}
