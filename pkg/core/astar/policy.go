package astar

import (
	"errors"
	"fmt"
)

// Default policy values.
const (
	DefaultNodePoolSize    = 64
	DefaultOpenSetSize     = 64
	DefaultFatalPathLength = 10000
)

// ErrInvalidPolicy is returned by Policy.Validate.
var ErrInvalidPolicy = errors.New("invalid search policy")

// Policy holds the construction-time configuration of an AStar instance.
type Policy struct {
	// NodePoolSize is the initial capacity reserved for search nodes.
	NodePoolSize int `yaml:"node_pool_size" json:"node_pool_size"`
	// OpenSetSize is the initial capacity reserved for the frontier heap.
	OpenSetSize int `yaml:"open_set_size" json:"open_set_size"`
	// FatalPathLength bounds the number of nodes on any parent chain, both
	// while searching and during path reconstruction. A longer chain yields
	// InfiniteLoop.
	FatalPathLength int `yaml:"fatal_path_length" json:"fatal_path_length"`
	// ReuseNodePoolInSubsequentSearches keeps search nodes and their
	// node reference mapping across FindPath calls, resetting only their
	// cost and flag fields.
	ReuseNodePoolInSubsequentSearches bool `yaml:"reuse_node_pool" json:"reuse_node_pool"`
	// MaxSearchNodes caps the number of node expansions per search.
	// Zero means unlimited.
	MaxSearchNodes int `yaml:"max_search_nodes" json:"max_search_nodes"`
	// IgnoreClosedNodes skips neighbours that were already expanded instead
	// of re-opening them when a cheaper route is found.
	IgnoreClosedNodes bool `yaml:"ignore_closed_nodes" json:"ignore_closed_nodes"`
}

// DefaultPolicy returns the standard search configuration.
func DefaultPolicy() Policy {
	return Policy{
		NodePoolSize:    DefaultNodePoolSize,
		OpenSetSize:     DefaultOpenSetSize,
		FatalPathLength: DefaultFatalPathLength,
	}
}

// Validate checks the policy for values the search cannot work with.
func (p Policy) Validate() error {
	switch {
	case p.NodePoolSize < 0:
		return fmt.Errorf("%w: node_pool_size must be >= 0, got %d", ErrInvalidPolicy, p.NodePoolSize)
	case p.OpenSetSize < 0:
		return fmt.Errorf("%w: open_set_size must be >= 0, got %d", ErrInvalidPolicy, p.OpenSetSize)
	case p.FatalPathLength <= 0:
		return fmt.Errorf("%w: fatal_path_length must be > 0, got %d", ErrInvalidPolicy, p.FatalPathLength)
	case p.MaxSearchNodes < 0:
		return fmt.Errorf("%w: max_search_nodes must be >= 0, got %d", ErrInvalidPolicy, p.MaxSearchNodes)
	}
	return nil
}

// withDefaults fills zero-valued sizes with the package defaults.
func (p Policy) withDefaults() Policy {
	if p.NodePoolSize == 0 {
		p.NodePoolSize = DefaultNodePoolSize
	}
	if p.OpenSetSize == 0 {
		p.OpenSetSize = DefaultOpenSetSize
	}
	if p.FatalPathLength <= 0 {
		p.FatalPathLength = DefaultFatalPathLength
	}
	return p
}
