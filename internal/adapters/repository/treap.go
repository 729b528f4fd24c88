package repository

import "math/rand/v2"

// Treap of stylists ordered for the leaderboard.
//
// Ordering: elo DESC, then stylist ID ASC (deterministic). "less" means
// ranks earlier, so an in-order walk yields the leaderboard best to worst.
// Each node carries its subtree size so rank queries are O(log n).

type node struct {
	id    string
	elo   float64
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

// less reports whether (aElo, aID) ranks before (bElo, bID).
func less(aElo float64, aID string, bElo float64, bID string) bool {
	if aElo != bElo {
		return aElo > bElo
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

func insert(n *node, id string, elo float64) *node {
	if n == nil {
		return &node{id: id, elo: elo, prio: rand.Uint64(), size: 1}
	}
	if less(elo, id, n.elo, n.id) {
		n.left = insert(n.left, id, elo)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, elo)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, elo float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case elo == n.elo && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, elo)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, elo)
		}
	case less(elo, id, n.elo, n.id):
		n.left = deleteNode(n.left, id, elo)
	default:
		n.right = deleteNode(n.right, id, elo)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes have a strictly higher elo.
func countAbove(n *node, elo float64) int {
	count := 0
	for n != nil {
		if n.elo > elo {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit nodes in leaderboard order.
func collectTopN(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}
