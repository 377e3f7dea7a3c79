package riskctx

import "context"

// Concept is a named strategy note from the knowledge graph
type Concept struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Edge links two graph nodes, e.g. a higher-timeframe view to a pair
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the subset of the strategy graph the pair context reads
type Graph struct {
	Concepts []Concept `json:"concepts"`
	Edges    []Edge    `json:"edges"`
}

// GraphSource supplies the current strategy graph
type GraphSource interface {
	Graph(ctx context.Context) (Graph, error)
}

// StaticGraph serves a fixed in-memory graph
type StaticGraph Graph

// Graph implements GraphSource
func (g StaticGraph) Graph(context.Context) (Graph, error) {
	return Graph(g), nil
}
