package rules

import (
	"fmt"
	"strings"
)

// Compound operator tokens. Any other token at a compound node never matches.
const (
	CompoundAnd = "AND"
	CompoundOr  = "OR"
)

// Condition is a node in a boolean condition tree. A node is exactly one of
// two shapes:
//
//   - Leaf: Field + Op + Value. Field is a dot-separated path into the
//     decision input, Op names an entry in the operator registry, and Value
//     is the comparison operand.
//   - Compound: Operator (AND or OR) + Operands, an ordered list of child
//     conditions. An empty operand list evaluates to the boolean identity:
//     AND with no operands is true, OR with no operands is false.
//
// Both YAML and JSON documents use the same field names, so a condition can
// be authored in a rules file or posted over the API interchangeably.
type Condition struct {
	// Leaf shape.
	Field string `yaml:"field,omitempty" json:"field,omitempty"`
	Op    string `yaml:"op,omitempty" json:"op,omitempty"`
	Value any    `yaml:"value,omitempty" json:"value,omitempty"`

	// Compound shape.
	Operator string      `yaml:"operator,omitempty" json:"operator,omitempty"`
	Operands []Condition `yaml:"operands,omitempty" json:"operands,omitempty"`
}

// IsLeaf reports whether the node carries the leaf shape.
func (c *Condition) IsLeaf() bool {
	return c.Field != "" || c.Op != ""
}

// IsCompound reports whether the node carries the compound shape.
func (c *Condition) IsCompound() bool {
	return c.Operator != "" || len(c.Operands) > 0
}

// Validate checks that the condition tree is well-formed: every node is
// exactly one of the two shapes, leaf operators exist in the registry, and
// compound operators are AND or OR. It is called at rule load time; the
// matcher itself tolerates anything and resolves malformed nodes to no-match.
func (c *Condition) Validate() error {
	return c.validate("condition")
}

func (c *Condition) validate(path string) error {
	leaf := c.IsLeaf()
	compound := c.IsCompound()

	switch {
	case leaf && compound:
		return fmt.Errorf("%s: node mixes leaf and compound fields", path)
	case !leaf && !compound:
		return fmt.Errorf("%s: node is neither a leaf nor a compound", path)
	}

	if leaf {
		if c.Field == "" {
			return fmt.Errorf("%s: leaf is missing field", path)
		}
		if c.Op == "" {
			return fmt.Errorf("%s: leaf is missing op", path)
		}
		if !OperatorExists(c.Op) {
			return fmt.Errorf("%s: unknown operator %q", path, c.Op)
		}
		return nil
	}

	op := strings.ToUpper(c.Operator)
	if op != CompoundAnd && op != CompoundOr {
		return fmt.Errorf("%s: unknown compound operator %q", path, c.Operator)
	}
	for i := range c.Operands {
		if err := c.Operands[i].validate(fmt.Sprintf("%s.operands[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Depth returns the maximum nesting depth of the condition tree. A leaf has
// depth 1.
func (c *Condition) Depth() int {
	if !c.IsCompound() {
		return 1
	}
	max := 0
	for i := range c.Operands {
		if d := c.Operands[i].Depth(); d > max {
			max = d
		}
	}
	return max + 1
}
