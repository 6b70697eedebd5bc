package book

// Red-black tree of price levels keyed by price. Gives O(log n)
// insert/delete of levels and ordered iteration for depth snapshots.

type rbColor uint8

const (
	red   rbColor = 0
	black rbColor = 1
)

type rbNode struct {
	key    int64
	level  *priceLevel
	color  rbColor
	left   *rbNode
	right  *rbNode
	parent *rbNode
}

type rbTree struct {
	root     *rbNode
	sentinel *rbNode // always black
	size     int
}

func newRBTree() *rbTree {
	sentinel := &rbNode{color: black}
	return &rbTree{root: sentinel, sentinel: sentinel}
}

func (t *rbTree) levels() int { return t.size }

func (t *rbTree) find(price int64) *priceLevel {
	n := t.root
	for n != t.sentinel {
		switch {
		case price < n.key:
			n = n.left
		case price > n.key:
			n = n.right
		default:
			return n.level
		}
	}
	return nil
}

// upsert returns the level at price, creating it if absent.
func (t *rbTree) upsert(price int64) *priceLevel {
	y := t.sentinel
	x := t.root
	for x != t.sentinel {
		y = x
		if price < x.key {
			x = x.left
		} else if price > x.key {
			x = x.right
		} else {
			return x.level
		}
	}

	lvl := &priceLevel{price: price}
	z := &rbNode{key: price, level: lvl, color: red, left: t.sentinel, right: t.sentinel, parent: y}
	if y == t.sentinel {
		t.root = z
	} else if z.key < y.key {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	t.size++
	return lvl
}

func (t *rbTree) remove(price int64) bool {
	z := t.search(price)
	if z == t.sentinel {
		return false
	}
	t.deleteNode(z)
	t.size--
	return true
}

func (t *rbTree) min() *priceLevel {
	n := t.minNode(t.root)
	if n == t.sentinel {
		return nil
	}
	return n.level
}

func (t *rbTree) max() *priceLevel {
	n := t.maxNode(t.root)
	if n == t.sentinel {
		return nil
	}
	return n.level
}

func (t *rbTree) ascend(fn func(*priceLevel) bool) {
	for n := t.minNode(t.root); n != t.sentinel; n = t.next(n) {
		if !fn(n.level) {
			return
		}
	}
}

func (t *rbTree) descend(fn func(*priceLevel) bool) {
	for n := t.maxNode(t.root); n != t.sentinel; n = t.prev(n) {
		if !fn(n.level) {
			return
		}
	}
}

func (t *rbTree) search(price int64) *rbNode {
	n := t.root
	for n != t.sentinel {
		if price < n.key {
			n = n.left
		} else if price > n.key {
			n = n.right
		} else {
			return n
		}
	}
	return t.sentinel
}

func (t *rbTree) minNode(n *rbNode) *rbNode {
	if n == t.sentinel {
		return t.sentinel
	}
	for n.left != t.sentinel {
		n = n.left
	}
	return n
}

func (t *rbTree) maxNode(n *rbNode) *rbNode {
	if n == t.sentinel {
		return t.sentinel
	}
	for n.right != t.sentinel {
		n = n.right
	}
	return n
}

func (t *rbTree) next(n *rbNode) *rbNode {
	if n.right != t.sentinel {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.sentinel && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *rbTree) prev(n *rbNode) *rbNode {
	if n.left != t.sentinel {
		return t.maxNode(n.left)
	}
	p := n.parent
	for p != t.sentinel && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

func (t *rbTree) leftRotate(x *rbNode) {
	y := x.right
	x.right = y.left
	if y.left != t.sentinel {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.sentinel {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *rbTree) rightRotate(y *rbNode) {
	x := y.left
	y.left = x.right
	if x.right != t.sentinel {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == t.sentinel {
		t.root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

func (t *rbTree) insertFixup(z *rbNode) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *rbTree) transplant(u, v *rbNode) {
	if u.parent == t.sentinel {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *rbTree) deleteNode(z *rbNode) {
	y := z
	yColor := y.color
	var x *rbNode

	if z.left == t.sentinel {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.sentinel {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.minNode(z.right)
		yColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yColor == black {
		t.deleteFixup(x)
	}
}

func (t *rbTree) deleteFixup(x *rbNode) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rightRotate(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.leftRotate(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}
