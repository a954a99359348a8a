package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"carveout/pkg/domain"
)

// NodeID addresses a node in a Protocol. Ids are assigned in creation order
// and never reused.
type NodeID uint32

// RootID is the id of the sentinel root of every protocol.
const RootID NodeID = 0

// ProtocolNode is one executed command in the undo tree.
type ProtocolNode struct {
	Command   Command
	CreatedAt time.Time
	Parent    NodeID
	Children  []NodeID
	// Selected is the index into Children that redo follows, or -1.
	Selected int
}

// SelectedChild returns the child redo would visit.
func (n *ProtocolNode) SelectedChild() (NodeID, bool) {
	if n.Selected < 0 || n.Selected >= len(n.Children) {
		return 0, false
	}
	return n.Children[n.Selected], true
}

// Protocol is a branching history of commands. Nodes are only ever
// appended, so a node's parent always has a smaller id.
type Protocol struct {
	nodes []ProtocolNode
	head  NodeID
}

// NewProtocol returns a protocol holding only the root.
func NewProtocol(now time.Time) *Protocol {
	return &Protocol{
		nodes: []ProtocolNode{{Command: &Sentinel{}, CreatedAt: now, Parent: RootID, Selected: -1}},
	}
}

// Head returns the id of the current node.
func (p *Protocol) Head() NodeID { return p.head }

// Root returns the id of the sentinel root.
func (p *Protocol) Root() NodeID { return RootID }

// Len returns the number of nodes, root included.
func (p *Protocol) Len() int { return len(p.nodes) }

// NodeView is a read-only copy of a node's links.
type NodeView struct {
	ID          NodeID
	Kind        CommandKind
	Description string
	CreatedAt   time.Time
	Parent      NodeID
	Children    []NodeID
	Selected    int
}

// Node returns a view of the node with id.
func (p *Protocol) Node(id NodeID) (NodeView, bool) {
	if int(id) >= len(p.nodes) {
		return NodeView{}, false
	}
	n := &p.nodes[id]
	return NodeView{
		ID:          id,
		Kind:        n.Command.Kind(),
		Description: n.Command.Describe(),
		CreatedAt:   n.CreatedAt,
		Parent:      n.Parent,
		Children:    slices.Clone(n.Children),
		Selected:    n.Selected,
	}, true
}

// PathToHead returns the ids from the root to the head, both included.
func (p *Protocol) PathToHead() []NodeID {
	var path []NodeID
	for id := p.head; ; id = p.nodes[id].Parent {
		path = append(path, id)
		if id == RootID {
			break
		}
	}
	slices.Reverse(path)
	return path
}

// Clone deep-copies the tree and every command in it.
func (p *Protocol) Clone() *Protocol {
	out := &Protocol{nodes: make([]ProtocolNode, len(p.nodes)), head: p.head}
	for i, n := range p.nodes {
		n.Children = slices.Clone(n.Children)
		n.Command = cloneCommand(n.Command)
		out.nodes[i] = n
	}
	return out
}

func (p *Protocol) node(id NodeID) *ProtocolNode { return &p.nodes[id] }

// append adds cmd as the selected child of head and moves head to it.
func (p *Protocol) append(cmd Command, now time.Time) NodeID {
	id := NodeID(len(p.nodes))
	parent := p.node(p.head)
	parent.Children = append(parent.Children, id)
	parent.Selected = len(parent.Children) - 1
	p.nodes = append(p.nodes, ProtocolNode{Command: cmd, CreatedAt: now, Parent: p.head, Selected: -1})
	p.head = id
	return id
}

// Validate checks the tree invariants of a decoded protocol.
func (p *Protocol) Validate() error {
	if len(p.nodes) == 0 {
		return fmt.Errorf("%w: no root", ErrCorruptProtocol)
	}
	if int(p.head) >= len(p.nodes) {
		return fmt.Errorf("%w: head %d out of range", ErrCorruptProtocol, p.head)
	}
	root := &p.nodes[RootID]
	if root.Parent != RootID {
		return fmt.Errorf("%w: root parent is %d", ErrCorruptProtocol, root.Parent)
	}
	if root.Command.Kind() != KindSentinel {
		return fmt.Errorf("%w: root holds %s", ErrCorruptProtocol, root.Command.Kind())
	}
	seen := make([]bool, len(p.nodes))
	for i := range p.nodes {
		n := &p.nodes[i]
		id := NodeID(i)
		if id != RootID {
			if n.Parent >= id {
				return fmt.Errorf("%w: node %d has parent %d", ErrCorruptProtocol, id, n.Parent)
			}
			if n.Command.Kind() == KindSentinel {
				return fmt.Errorf("%w: sentinel at node %d", ErrCorruptProtocol, id)
			}
		}
		if n.Selected < -1 || n.Selected >= len(n.Children) {
			return fmt.Errorf("%w: node %d selects %d of %d children", ErrCorruptProtocol, id, n.Selected, len(n.Children))
		}
		for _, c := range n.Children {
			if c <= id || int(c) >= len(p.nodes) || p.nodes[c].Parent != id || seen[c] {
				return fmt.Errorf("%w: node %d has bad child %d", ErrCorruptProtocol, id, c)
			}
			seen[c] = true
		}
	}
	for i := 1; i < len(seen); i++ {
		if !seen[i] {
			return fmt.Errorf("%w: node %d unreachable", ErrCorruptProtocol, i)
		}
	}
	// Nodes on the path to head are applied, everything else is not.
	applied := make([]bool, len(p.nodes))
	for _, id := range p.PathToHead() {
		applied[id] = true
	}
	for i := 1; i < len(p.nodes); i++ {
		want := StateBefore
		if applied[i] {
			want = StateAfter
		}
		if got := p.nodes[i].Command.State(); got != want {
			return fmt.Errorf("%w: node %d command is %s, want %s", ErrCorruptProtocol, i, got, want)
		}
	}
	return nil
}

type wireNode struct {
	Command   json.RawMessage `json:"command"`
	CreatedAt time.Time       `json:"created_at"`
	Parent    NodeID          `json:"parent"`
	Children  []NodeID        `json:"children,omitempty"`
	Selected  *int            `json:"selected,omitempty"`
}

type wireProtocol struct {
	Head  NodeID     `json:"head"`
	Nodes []wireNode `json:"nodes"`
}

// MarshalJSON encodes every node and command, branches included.
func (p *Protocol) MarshalJSON() ([]byte, error) {
	w := wireProtocol{Head: p.head, Nodes: make([]wireNode, len(p.nodes))}
	for i, n := range p.nodes {
		raw, err := MarshalCommand(n.Command)
		if err != nil {
			return nil, fmt.Errorf("encode node %d: %w", i, err)
		}
		w.Nodes[i] = wireNode{Command: raw, CreatedAt: n.CreatedAt, Parent: n.Parent, Children: n.Children}
		if n.Selected >= 0 {
			sel := n.Selected
			w.Nodes[i].Selected = &sel
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes and validates a protocol. p is left untouched on error.
func (p *Protocol) UnmarshalJSON(data []byte) error {
	var w wireProtocol
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode protocol: %w", err)
	}
	decoded := Protocol{nodes: make([]ProtocolNode, len(w.Nodes)), head: w.Head}
	for i, n := range w.Nodes {
		cmd, err := UnmarshalCommand(n.Command)
		if err != nil {
			return fmt.Errorf("decode protocol node %d: %w", i, err)
		}
		sel := -1
		if n.Selected != nil {
			sel = *n.Selected
		}
		decoded.nodes[i] = ProtocolNode{Command: cmd, CreatedAt: n.CreatedAt, Parent: n.Parent, Children: n.Children, Selected: sel}
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*p = decoded
	return nil
}

func cloneCommand(c Command) Command {
	switch c := c.(type) {
	case *Sentinel:
		return &Sentinel{}
	case *AddStroke:
		cp := *c
		cp.stroke = c.stroke.Clone()
		return &cp
	case *RemoveStrokes:
		cp := *c
		cp.ids = slices.Clone(c.ids)
		cp.removed = make([]RemovedStroke, len(c.removed))
		for i, r := range c.removed {
			cp.removed[i] = RemovedStroke{ID: r.ID, Stroke: r.Stroke.Clone()}
		}
		return &cp
	case *ExtendStroke:
		cp := *c
		cp.points = slices.Clone(c.points)
		return &cp
	case *TransformStrokes:
		cp := *c
		cp.ids = slices.Clone(c.ids)
		if c.original != nil {
			cp.original = make([][]domain.Point, len(c.original))
			for i, pts := range c.original {
				cp.original[i] = slices.Clone(pts)
			}
		}
		return &cp
	case *RecolorStrokes:
		cp := *c
		cp.ids = slices.Clone(c.ids)
		cp.previous = slices.Clone(c.previous)
		return &cp
	}
	panic(fmt.Sprintf("core: clone of unknown command %T", c))
}
