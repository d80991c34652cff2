package idgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	randomAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomLength   = 6
	// timeWidth is the base36 width of the largest int64.
	timeWidth = 13
)

var prefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,12}$`)

// ReferenceGenerator creates transaction references:
// PREFIX + 13 chars of time-ordered snowflake (base36) + 6 random chars.
type ReferenceGenerator struct {
	prefix string
	node   *snowflake.Node
}

// NewReferenceGenerator creates a generator for the given brand prefix and node id (0..1023).
func NewReferenceGenerator(prefix string, nodeID int64) (*ReferenceGenerator, error) {
	prefix = strings.ToUpper(prefix)
	if !prefixPattern.MatchString(prefix) {
		return nil, fmt.Errorf("reference prefix %q must be 1-12 uppercase alphanumerics", prefix)
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &ReferenceGenerator{prefix: prefix, node: node}, nil
}

// Generate returns a new reference. References from one generator sort by creation time.
func (g *ReferenceGenerator) Generate() string {
	ts := strings.ToUpper(g.node.Generate().Base36())
	if pad := timeWidth - len(ts); pad > 0 {
		ts = strings.Repeat("0", pad) + ts
	}
	return g.prefix + ts + gonanoid.MustGenerate(randomAlphabet, randomLength)
}

// Prefix returns the brand tag.
func (g *ReferenceGenerator) Prefix() string {
	return g.prefix
}
