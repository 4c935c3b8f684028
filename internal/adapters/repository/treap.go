package repository

import "math/rand/v2"

// treap is an order-statistic tree keyed by (score DESC, id ASC). In-order
// traversal yields the leaderboard from best to worst and select finds the
// k-th row in O(log n) expected time.
type treap struct {
	root *node
}

type node struct {
	id    string
	score float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) ranks before (bScore, bID).
func less(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score float64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: rand.Uint64(), size: 1} //nolint:gosec // balancing only
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

func (t *treap) insert(id string, score float64) { t.root = insert(t.root, id, score) }

func (t *treap) remove(id string, score float64) { t.root = deleteNode(t.root, id, score) }

func (t *treap) len() int { return nsize(t.root) }

// at returns the id at 0-based position k in tree order.
func (t *treap) at(k int) (string, bool) {
	n := t.root
	for n != nil {
		left := nsize(n.left)
		switch {
		case k < left:
			n = n.left
		case k == left:
			return n.id, true
		default:
			k -= left + 1
			n = n.right
		}
	}
	return "", false
}

// rank returns the 0-based position of (id, score).
func (t *treap) rank(id string, score float64) int {
	r := 0
	n := t.root
	for n != nil {
		if less(score, id, n.score, n.id) {
			n = n.left
			continue
		}
		r += nsize(n.left)
		if n.id == id && n.score == score {
			return r
		}
		r++
		n = n.right
	}
	return -1
}

// window returns up to limit ids starting at offset. When reverse is set
// positions are counted from the end of the tree.
func (t *treap) window(offset, limit int, reverse bool) []string {
	total := t.len()
	if offset < 0 || offset >= total || limit <= 0 {
		return nil
	}
	if offset+limit > total {
		limit = total - offset
	}
	out := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		k := offset + i
		if reverse {
			k = total - 1 - k
		}
		id, _ := t.at(k)
		out = append(out, id)
	}
	return out
}

// walk visits ids in tree order until fn returns false.
func (t *treap) walk(fn func(id string) bool) {
	var visit func(n *node) bool
	visit = func(n *node) bool {
		if n == nil {
			return true
		}
		return visit(n.left) && fn(n.id) && visit(n.right)
	}
	visit(t.root)
}
