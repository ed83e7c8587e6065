package navgraph

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the YAML (or JSON) description of a waypoint graph.
//
//	name: arena
//	dimension: 2
//	nodes:
//	  - {id: A, pos: [0, 0]}
//	  - {id: B, pos: [3, 4], area: 2}
//	edges:
//	  - {from: A, to: B, bidirectional: true}
type Document struct {
	Name      string     `yaml:"name" json:"name"`
	Dimension int        `yaml:"dimension" json:"dimension"`
	Nodes     []NodeSpec `yaml:"nodes" json:"nodes"`
	Edges     []EdgeSpec `yaml:"edges" json:"edges"`
}

// NodeSpec describes one waypoint.
type NodeSpec struct {
	ID   string    `yaml:"id" json:"id"`
	Pos  []float64 `yaml:"pos" json:"pos"`
	Area uint8     `yaml:"area" json:"area,omitempty"`
}

// EdgeSpec describes one link. A zero cost means the euclidean distance.
type EdgeSpec struct {
	From          string  `yaml:"from" json:"from"`
	To            string  `yaml:"to" json:"to"`
	Cost          float32 `yaml:"cost" json:"cost,omitempty"`
	Bidirectional bool    `yaml:"bidirectional" json:"bidirectional,omitempty"`
}

// LoadDocument decodes a graph document, rejecting unknown fields.
func LoadDocument(r io.Reader) (*Document, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("YAML syntax error in graph document: %w", err)
	}
	if doc.Dimension == 0 && len(doc.Nodes) > 0 {
		doc.Dimension = len(doc.Nodes[0].Pos)
	}
	return &doc, nil
}

// LoadDocumentFile reads a graph document from path.
func LoadDocumentFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph document: %w", err)
	}
	defer file.Close()
	return LoadDocument(file)
}

// Build creates the graph described by the document.
func (d *Document) Build() (*Graph, error) {
	g := NewGraph(d.Dimension)
	for _, n := range d.Nodes {
		if _, err := g.AddNode(n.ID, n.Pos, n.Area); err != nil {
			return nil, err
		}
	}
	for i, e := range d.Edges {
		if err := g.Link(e.From, e.To, e.Cost, e.Bidirectional); err != nil {
			return nil, fmt.Errorf("edge %d (%s -> %s): %w", i, e.From, e.To, err)
		}
	}
	return g, nil
}
