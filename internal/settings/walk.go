package settings

// Visitor receives the nodes of a settings tree in key order.
type Visitor interface {
	EnterGroup(path Path, n *Node)
	Leaf(path Path, n *Node)
	LeaveGroup(path Path, n *Node)
}

// Walk visits every node below root, depth first. The root itself is not
// reported. Paths handed to the visitor are fresh slices and may be kept.
func Walk(root *Node, v Visitor) {
	walk(root, nil, v)
}

func walk(group *Node, prefix Path, v Visitor) {
	for _, c := range group.Children {
		p := make(Path, len(prefix)+1)
		copy(p, prefix)
		p[len(prefix)] = c.Key

		if c.IsLeaf() {
			v.Leaf(p, c)
			continue
		}
		v.EnterGroup(p, c)
		walk(c, p, v)
		v.LeaveGroup(p, c)
	}
}
