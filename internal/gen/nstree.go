package gen

import (
	"crossbind/internal/ir"
)

// nsNode is one scope in the emitted namespace tree. The root node has
// id == NoItemID. Children and items keep first-encounter order, which is
// derived from the deterministic plan order.
type nsNode struct {
	id       ir.ItemID
	children []*nsNode
	items    []ir.ItemID
}

func (n *nsNode) child(id ir.ItemID) *nsNode {
	for _, c := range n.children {
		if c.id == id {
			return c
		}
	}
	c := &nsNode{id: id}
	n.children = append(n.children, c)
	return c
}

// nsTree groups the plan's emitted and opaque items by their enclosing
// namespaces. Members of records (methods) are attached to the record's
// namespace, not the record.
func nsTree(p *plan) *nsNode {
	root := &nsNode{}
	place := func(id ir.ItemID) {
		it := p.mod.Items.Get(id)
		if it == nil {
			return
		}
		node := root
		for _, nsID := range nsOwnerChain(p.mod, it) {
			node = node.child(nsID)
		}
		node.items = append(node.items, id)
	}
	for _, id := range p.emit {
		place(id)
	}
	for _, id := range p.opaque {
		place(id)
	}
	return root
}

// nsOwnerChain returns the namespace item IDs enclosing an item, outermost
// first.
func nsOwnerChain(mod *ir.Module, it *ir.Item) []ir.ItemID {
	var rev []ir.ItemID
	for owner := mod.Items.Get(it.Owner); owner != nil; owner = mod.Items.Get(owner.Owner) {
		if owner.Kind == ir.ItemNamespace {
			rev = append(rev, owner.ID)
		}
	}
	out := make([]ir.ItemID, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}
