package utils

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// IDGenerator hands out durable link ids
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator creates a generator for the given datacenter and worker.
// Both ids use 5 bits, so each must be in [0, 31].
func NewIDGenerator(datacenterID, workerID int64) (*IDGenerator, error) {
	if datacenterID < 0 || datacenterID > 31 || workerID < 0 || workerID > 31 {
		return nil, fmt.Errorf("datacenter id %d and worker id %d must be in [0, 31]", datacenterID, workerID)
	}

	node, err := snowflake.NewNode((datacenterID << 5) | workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &IDGenerator{node: node}, nil
}

// NextID returns a new unique, time ordered id
func (g *IDGenerator) NextID() int64 {
	return g.node.Generate().Int64()
}
