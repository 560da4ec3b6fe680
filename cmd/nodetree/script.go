package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/nodetree/pkg/model"
)

// scriptOp is one step of a --script file.
//
//	- op: add          # parent defaults to START
//	  parent: "1"
//	- op: move         # from becomes the last child of to
//	  from: "1.1"
//	  to: "2"
//	- op: above        # from is appended to the parent of to
//	  from: "2"
//	  to: "1.1"
//	- op: before       # from is inserted directly before to
//	  from: "3"
//	  to: "1"
type scriptOp struct {
	Op     string `yaml:"op"`
	From   string `yaml:"from,omitempty"`
	To     string `yaml:"to,omitempty"`
	Parent string `yaml:"parent,omitempty"`
}

// scriptResult records what one op did. Err is nil for applied ops.
type scriptResult struct {
	Index int
	Op    scriptOp
	Added string // id created by an add
	Err   error
}

// errUnknownOp is returned for an op name the script runner does not know.
var errUnknownOp = errors.New("unknown script op")

// loadScript reads a YAML list of operations.
func loadScript(path string) ([]scriptOp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return parseScript(data)
}

func parseScript(data []byte) ([]scriptOp, error) {
	var ops []scriptOp
	if err := yaml.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	for i, op := range ops {
		switch op.Op {
		case "add", "move", "above", "before":
		default:
			return nil, fmt.Errorf("op %d: %w %q", i+1, errUnknownOp, op.Op)
		}
	}
	return ops, nil
}

// runScript applies ops in order. Rejected ops leave the tree unchanged and
// the run continues, matching the editor's no-op policy.
func runScript(tree *model.Tree, ops []scriptOp) []scriptResult {
	results := make([]scriptResult, 0, len(ops))
	for i, op := range ops {
		res := scriptResult{Index: i + 1, Op: op}
		switch op.Op {
		case "add":
			parent := op.Parent
			if parent == "" {
				parent = model.RootID
			}
			res.Added, res.Err = tree.AddChild(parent)
		case "move":
			res.Err = tree.MoveNode(op.From, op.To)
		case "above":
			res.Err = tree.MoveNodeAbove(op.From, op.To)
		case "before":
			res.Err = tree.MoveNodeBefore(op.From, op.To)
		default:
			res.Err = fmt.Errorf("%w %q", errUnknownOp, op.Op)
		}
		results = append(results, res)
	}
	return results
}

// rejections returns the results whose op did not apply.
func rejections(results []scriptResult) []scriptResult {
	var out []scriptResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

func (r scriptResult) String() string {
	switch r.Op.Op {
	case "add":
		parent := r.Op.Parent
		if parent == "" {
			parent = model.RootID
		}
		return fmt.Sprintf("op %d: add under %s", r.Index, parent)
	default:
		return fmt.Sprintf("op %d: %s %s -> %s", r.Index, r.Op.Op, r.Op.From, r.Op.To)
	}
}
