// Package entitygraph implements the Entity Graph (C5): a static JSON
// map of project entities scored per query token, grounded on the same
// load-once, score-in-memory idiom used by pkg/vector/chromem.go's
// metadata handling, adapted to a flat entity catalog rather than an
// embedding store since the entity graph carries no vectors.
package entitygraph

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

// Entity is one node of the static project entity graph.
type Entity struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Documents   []string `json:"documents"`
	DependsOn   []string `json:"depends_on"`
	Feeds       []string `json:"feeds"`
	Tags        []string `json:"tags"`
}

// Graph is the loaded entity catalog.
type Graph struct {
	entities []Entity
}

// Load reads a static JSON array of Entities from path. A missing file
// yields an empty, usable Graph rather than an error, matching the
// optional nature of auxiliary retrievers elsewhere in the pipeline.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Graph{}, nil
		}
		return nil, fmt.Errorf("entitygraph: reading %q: %w", path, err)
	}
	var entities []Entity
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, fmt.Errorf("entitygraph: parsing %q: %w", path, err)
	}
	return &Graph{entities: entities}, nil
}

// Search scores every entity against the query's tokens (+2 per token
// found in the name, +1 in the description, +1.5 in tags), returning
// the top-limit entities serialized as card Documents.
func (g *Graph) Search(query string, limit int) []ragtypes.Document {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 || len(g.entities) == 0 {
		return nil
	}

	type scored struct {
		entity Entity
		score  float64
	}
	var ranked []scored
	for _, e := range g.entities {
		score := scoreEntity(e, tokens)
		if score > 0 {
			ranked = append(ranked, scored{entity: e, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	docs := make([]ragtypes.Document, 0, len(ranked))
	for _, r := range ranked {
		score := r.score
		docs = append(docs, ragtypes.Document{
			ID:      "entity:" + r.entity.Name,
			Content: card(r.entity),
			Source:  ragtypes.SourceEntityGraph,
			Score:   &score,
			Metadata: map[string]any{
				"entity_type": r.entity.Type,
			},
		})
	}
	return docs
}

func scoreEntity(e Entity, tokens []string) float64 {
	name := strings.ToLower(e.Name)
	desc := strings.ToLower(e.Description)
	tags := strings.ToLower(strings.Join(e.Tags, " "))

	var score float64
	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			score += 2
		}
		if strings.Contains(desc, tok) {
			score += 1
		}
		if strings.Contains(tags, tok) {
			score += 1.5
		}
	}
	return score
}

// card renders an Entity as the serialized text a Document carries.
func card(e Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Entity: %s (%s)\n", e.Name, e.Type)
	if e.Description != "" {
		fmt.Fprintf(&b, "%s\n", e.Description)
	}
	if len(e.DependsOn) > 0 {
		fmt.Fprintf(&b, "Depends on: %s\n", strings.Join(e.DependsOn, ", "))
	}
	if len(e.Feeds) > 0 {
		fmt.Fprintf(&b, "Feeds: %s\n", strings.Join(e.Feeds, ", "))
	}
	if len(e.Documents) > 0 {
		fmt.Fprintf(&b, "Documents: %s\n", strings.Join(e.Documents, ", "))
	}
	if len(e.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(e.Tags, ", "))
	}
	return b.String()
}
