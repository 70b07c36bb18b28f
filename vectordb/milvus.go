package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/legalsearch/legalrag/common/logger"
	"github.com/legalsearch/legalrag/config"
	"github.com/legalsearch/legalrag/schema"
)

const (
	fieldID       = "id"
	fieldContent  = "content"
	fieldMetadata = "metadata"
	fieldVector   = "vector"

	maxIDLength      = 256
	maxContentLength = 65535
)

// MilvusStore backs the knowledge base with a Milvus deployment. One Milvus
// collection per knowledge collection, HNSW index with cosine metric.
type MilvusStore struct {
	cli client.Client
}

func NewMilvusStore(cfg config.VectorDBConfig) (*MilvusStore, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 19530
	}
	clientCfg := client.Config{
		Address:  fmt.Sprintf("%s:%d", host, port),
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	}
	cli, err := client.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to milvus failed, err: %w", err)
	}
	return &MilvusStore{cli: cli}, nil
}

func (s *MilvusStore) EnsureCollection(ctx context.Context, collection string, dim int) error {
	has, err := s.cli.HasCollection(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection %s failed, err: %w", collection, err)
	}
	if has {
		return s.loadCollection(ctx, collection)
	}

	sch := entity.NewSchema().
		WithName(collection).
		WithField(entity.NewField().
			WithName(fieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxIDLength).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(fieldContent).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxContentLength)).
		WithField(entity.NewField().
			WithName(fieldMetadata).
			WithDataType(entity.FieldTypeJSON)).
		WithField(entity.NewField().
			WithName(fieldVector).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim)))

	if err := s.cli.CreateCollection(ctx, sch, 1); err != nil {
		return fmt.Errorf("create collection %s failed, err: %w", collection, err)
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
	if err != nil {
		return fmt.Errorf("build hnsw index failed, err: %w", err)
	}
	if err := s.cli.CreateIndex(ctx, collection, fieldVector, idx, false); err != nil {
		return fmt.Errorf("create index on %s failed, err: %w", collection, err)
	}
	logger.Infof("created milvus collection %s, dim=%d", collection, dim)
	return s.loadCollection(ctx, collection)
}

func (s *MilvusStore) loadCollection(ctx context.Context, collection string) error {
	if err := s.cli.LoadCollection(ctx, collection, false); err != nil {
		return fmt.Errorf("load collection %s failed, err: %w", collection, err)
	}
	return nil
}

func (s *MilvusStore) Upsert(ctx context.Context, collection string, item schema.KnowledgeItem) error {
	metadata := item.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metaBytes, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata for %s failed, err: %w", item.ID, err)
	}
	content := truncateBytes(item.Content, maxContentLength)
	cols := []entity.Column{
		entity.NewColumnVarChar(fieldID, []string{item.ID}),
		entity.NewColumnVarChar(fieldContent, []string{content}),
		entity.NewColumnJSONBytes(fieldMetadata, [][]byte{metaBytes}),
		entity.NewColumnFloatVector(fieldVector, len(item.Vector), [][]float32{item.Vector}),
	}
	if _, err := s.cli.Upsert(ctx, collection, "", cols...); err != nil {
		return fmt.Errorf("upsert into %s failed, err: %w", collection, err)
	}
	return nil
}

func (s *MilvusStore) Delete(ctx context.Context, collection string, id string) error {
	pks := entity.NewColumnVarChar(fieldID, []string{id})
	if err := s.cli.DeleteByPks(ctx, collection, "", pks); err != nil {
		return fmt.Errorf("delete %s from %s failed, err: %w", id, collection, err)
	}
	return nil
}

func (s *MilvusStore) Search(ctx context.Context, collection string, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	topK, filter := searchParams(opts)
	expr := filterExpr(filter)
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("build search param failed, err: %w", err)
	}
	res, err := s.cli.Search(ctx, collection, nil, expr,
		[]string{fieldID, fieldContent, fieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("search %s failed, err: %w", collection, err)
	}
	if len(res) == 0 {
		return nil, nil
	}
	rs := res[0]
	results := make([]schema.SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		item, err := rowToItem(rs.Fields, i)
		if err != nil {
			logger.Warnf("skip malformed search row %d in %s: %v", i, collection, err)
			continue
		}
		results = append(results, schema.SearchResult{
			Item:  item,
			Score: float64(rs.Scores[i]),
		})
	}
	return results, nil
}

func (s *MilvusStore) TextSearch(ctx context.Context, collection string, query string, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	topK, filter := searchParams(opts)
	exprs := []string{fmt.Sprintf("%s like %q", fieldContent, "%"+escapeLike(query)+"%")}
	if fe := filterExpr(filter); fe != "" {
		exprs = append(exprs, fe)
	}
	rs, err := s.cli.Query(ctx, collection, nil, strings.Join(exprs, " && "),
		[]string{fieldID, fieldContent, fieldMetadata},
		client.WithLimit(int64(topK)))
	if err != nil {
		return nil, fmt.Errorf("text query %s failed, err: %w", collection, err)
	}
	n := rowCount(rs)
	results := make([]schema.SearchResult, 0, n)
	for i := 0; i < n; i++ {
		item, err := rowToItem(rs, i)
		if err != nil {
			logger.Warnf("skip malformed query row %d in %s: %v", i, collection, err)
			continue
		}
		results = append(results, schema.SearchResult{Item: item})
	}
	return results, nil
}

func (s *MilvusStore) Stats(ctx context.Context, collection string) (int64, error) {
	stats, err := s.cli.GetCollectionStatistics(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("get statistics for %s failed, err: %w", collection, err)
	}
	var count int64
	if v, ok := stats["row_count"]; ok {
		if _, err := fmt.Sscanf(v, "%d", &count); err != nil {
			return 0, fmt.Errorf("parse row_count %q failed, err: %w", v, err)
		}
	}
	return count, nil
}

func (s *MilvusStore) Ping(ctx context.Context) error {
	if _, err := s.cli.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus unavailable, err: %w", err)
	}
	return nil
}

func (s *MilvusStore) Close() error {
	return s.cli.Close()
}

// filterExpr renders a metadata filter as a Milvus boolean expression over
// the JSON metadata field.
func filterExpr(filter schema.Filter) string {
	if len(filter) == 0 {
		return ""
	}
	parts := make([]string, 0, len(filter))
	for key, want := range filter {
		field := fmt.Sprintf("%s[%q]", fieldMetadata, key)
		switch w := want.(type) {
		case []string:
			quoted := make([]string, 0, len(w))
			for _, v := range w {
				quoted = append(quoted, fmt.Sprintf("%q", v))
			}
			parts = append(parts, fmt.Sprintf("%s in [%s]", field, strings.Join(quoted, ", ")))
		case string:
			parts = append(parts, fmt.Sprintf("%s == %q", field, w))
		default:
			parts = append(parts, fmt.Sprintf("%s == %v", field, w))
		}
	}
	return strings.Join(parts, " && ")
}

// truncateBytes cuts s to at most max bytes without splitting a rune.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `%`, `\%`)
}

func rowCount(cols []entity.Column) int {
	for _, col := range cols {
		if col.Name() == fieldID {
			return col.Len()
		}
	}
	return 0
}

func rowToItem(cols []entity.Column, idx int) (schema.KnowledgeItem, error) {
	var item schema.KnowledgeItem
	for _, col := range cols {
		switch col.Name() {
		case fieldID:
			v, err := col.GetAsString(idx)
			if err != nil {
				return item, fmt.Errorf("read id failed, err: %w", err)
			}
			item.ID = v
		case fieldContent:
			v, err := col.GetAsString(idx)
			if err != nil {
				return item, fmt.Errorf("read content failed, err: %w", err)
			}
			item.Content = v
		case fieldMetadata:
			jb, ok := col.(*entity.ColumnJSONBytes)
			if !ok {
				return item, fmt.Errorf("unexpected metadata column type %T", col)
			}
			raw, err := jb.ValueByIdx(idx)
			if err != nil {
				return item, fmt.Errorf("read metadata failed, err: %w", err)
			}
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &item.Metadata); err != nil {
					return item, fmt.Errorf("decode metadata failed, err: %w", err)
				}
			}
		}
	}
	if item.ID == "" {
		return item, fmt.Errorf("row %d has no id", idx)
	}
	return item, nil
}
