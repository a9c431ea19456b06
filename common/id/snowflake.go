package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// NewString returns a time-ordered ID in base36, short enough for log lines.
// Turn IDs use it to correlate every log record and span of one relay.
func NewString() string {
	return current().Generate().Base36()
}

// current falls back to node 0 when Init was never called (tests, CLI).
func current() *snowflake.Node {
	_ = Init(0)
	return node
}
