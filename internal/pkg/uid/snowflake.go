package uid

import (
	"crypto/rand"
	"math/big"
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates time-sortable int64 identifiers.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake builds a generator whose node id comes from the NODE_ID
// environment variable, or a random node id when unset.
func NewSnowflake() (*Snowflake, error) {
	nodeID, err := resolveNodeID()
	if err != nil {
		return nil, err
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: node}, nil
}

// Generate returns a new snowflake id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

func resolveNodeID() (int64, error) {
	if v := os.Getenv("NODE_ID"); v != "" {
		return strconv.ParseInt(v, 10, 64)
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1024))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
