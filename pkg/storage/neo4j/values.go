package neo4j

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ontologymarket/catalog/pkg/storage"
)

// Timestamps are stored as integer microseconds since the epoch.

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

func recordProps(r *storage.Record) map[string]any {
	props := map[string]any{
		"uuid":       r.ID,
		"name":       r.Name,
		"source_url": r.SourceURL,
		"is_public":  r.IsPublic,
		"created_at": toMicros(r.CreatedAt),
		"updated_at": toMicros(r.UpdatedAt),
	}
	if r.ImageURL != nil {
		props["image_url"] = *r.ImageURL
	}
	if r.Description != nil {
		props["description"] = *r.Description
	}
	if r.NodeCount != nil {
		props["node_count"] = *r.NodeCount
	}
	if r.RelationshipCount != nil {
		props["relationship_count"] = *r.RelationshipCount
	}
	if r.Score != nil {
		props["score"] = *r.Score
	}
	return props
}

func patchProps(p storage.RecordPatch) map[string]any {
	props := map[string]any{"updated_at": toMicros(p.UpdatedAt)}
	if p.Name != nil {
		props["name"] = *p.Name
	}
	if p.SourceURL != nil {
		props["source_url"] = *p.SourceURL
	}
	if p.ImageURL != nil {
		props["image_url"] = *p.ImageURL
	}
	if p.Description != nil {
		props["description"] = *p.Description
	}
	if p.NodeCount != nil {
		props["node_count"] = *p.NodeCount
	}
	if p.RelationshipCount != nil {
		props["relationship_count"] = *p.RelationshipCount
	}
	if p.Score != nil {
		props["score"] = *p.Score
	}
	if p.IsPublic != nil {
		props["is_public"] = *p.IsPublic
	}
	return props
}

func nodeValue(rec *neo4j.Record, key string) (neo4j.Node, error) {
	v, ok := rec.Get(key)
	if !ok {
		return neo4j.Node{}, fmt.Errorf("could not find return value '%s' in query result", key)
	}
	node, ok := v.(neo4j.Node)
	if !ok {
		return neo4j.Node{}, fmt.Errorf("return value '%s' is not a node", key)
	}
	return node, nil
}

func recordFromResult(rec *neo4j.Record, key string) (*storage.Record, error) {
	node, err := nodeValue(rec, key)
	if err != nil {
		return nil, err
	}

	r := &storage.Record{}
	if r.ID, err = neo4j.GetProperty[string](node, "uuid"); err != nil {
		return nil, err
	}
	if r.Name, err = neo4j.GetProperty[string](node, "name"); err != nil {
		return nil, err
	}
	if r.SourceURL, err = neo4j.GetProperty[string](node, "source_url"); err != nil {
		return nil, err
	}
	r.IsPublic, _ = node.Props["is_public"].(bool)

	created, err := neo4j.GetProperty[int64](node, "created_at")
	if err != nil {
		return nil, err
	}
	r.CreatedAt = fromMicros(created)
	updated, err := neo4j.GetProperty[int64](node, "updated_at")
	if err != nil {
		return nil, err
	}
	r.UpdatedAt = fromMicros(updated)

	r.ImageURL = optional[string](node, "image_url")
	r.Description = optional[string](node, "description")
	r.NodeCount = optional[int64](node, "node_count")
	r.RelationshipCount = optional[int64](node, "relationship_count")
	r.Score = optional[float64](node, "score")
	return r, nil
}

func optional[T any](node neo4j.Node, prop string) *T {
	v, ok := node.Props[prop].(T)
	if !ok {
		return nil
	}
	return &v
}

func userFromResult(rec *neo4j.Record, key string) (*storage.User, error) {
	node, err := nodeValue(rec, key)
	if err != nil {
		return nil, err
	}

	u := &storage.User{}
	if u.FUID, err = neo4j.GetProperty[string](node, "fuid"); err != nil {
		return nil, err
	}
	u.UUID, _ = node.Props["uuid"].(string)
	u.IsPublic, _ = node.Props["is_public"].(bool)
	if created, ok := node.Props["created_at"].(int64); ok {
		u.CreatedAt = fromMicros(created)
	}
	return u, nil
}

func stringValue(rec *neo4j.Record, key string) (string, error) {
	v, _, err := neo4j.GetRecordValue[string](rec, key)
	return v, err
}

func intValue(rec *neo4j.Record, key string) (int64, error) {
	v, _, err := neo4j.GetRecordValue[int64](rec, key)
	return v, err
}

func boolValue(rec *neo4j.Record, key string) (bool, error) {
	v, _, err := neo4j.GetRecordValue[bool](rec, key)
	return v, err
}

func stringsValue(rec *neo4j.Record, key string) ([]string, error) {
	v, ok := rec.Get(key)
	if !ok {
		return nil, fmt.Errorf("could not find return value '%s' in query result", key)
	}
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("return value '%s' is not a list", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("return value '%s' holds a non-string item", key)
		}
		out = append(out, s)
	}
	return out, nil
}
