// Package id mints the int64 identifiers used for sync runs and
// persisted rows. IDs are snowflakes, so they sort by creation time.
package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init sets up the generator for this process. The node ID must be
// unique per running instance; calling Init again is a no-op.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
		if err != nil {
			err = fmt.Errorf("initializing id node %d: %w", nodeID, err)
		}
	})
	return err
}

// New returns the next identifier. Init must have been called first.
func New() int64 {
	return node.Generate().Int64()
}
