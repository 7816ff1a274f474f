package layout

// tidy is a node of the Buchheim tidy-tree walk. Breadth positions are in
// separation units until normalized.
type tidy struct {
	index    int
	depth    int
	parent   *tidy
	children []*tidy

	ancestor *tidy // A: default ancestor of this node's children
	a        *tidy // a: ancestor pointer used by apportion
	thread   *tidy // t
	prelim   float64
	mod      float64
	change   float64
	shift    float64
	i        int // position among siblings

	x float64
}

// separation is the gap between two neighbouring nodes: siblings get a full
// unit, cousins half, and both shrink with depth.
func separation(a, b *tidy) float64 {
	gap := 0.5
	if a.parent == b.parent {
		gap = 1
	}
	depth := a.depth
	if depth < 1 {
		depth = 1
	}
	return gap / float64(depth)
}

func nextLeft(v *tidy) *tidy {
	if len(v.children) > 0 {
		return v.children[0]
	}
	return v.thread
}

func nextRight(v *tidy) *tidy {
	if len(v.children) > 0 {
		return v.children[len(v.children)-1]
	}
	return v.thread
}

func moveSubtree(wm, wp *tidy, shift float64) {
	change := shift / float64(wp.i-wm.i)
	wp.change -= change
	wp.shift += shift
	wm.change += change
	wp.prelim += shift
	wp.mod += shift
}

func executeShifts(v *tidy) {
	shift, change := 0.0, 0.0
	for i := len(v.children) - 1; i >= 0; i-- {
		w := v.children[i]
		w.prelim += shift
		w.mod += shift
		change += w.change
		shift += w.shift + change
	}
}

func nextAncestor(vim, v, ancestor *tidy) *tidy {
	if vim.a.parent == v.parent {
		return vim.a
	}
	return ancestor
}

func firstWalk(v *tidy) {
	for _, child := range v.children {
		firstWalk(child)
	}

	siblings := v.parent.children
	var w *tidy
	if v.i > 0 {
		w = siblings[v.i-1]
	}
	if len(v.children) > 0 {
		executeShifts(v)
		midpoint := (v.children[0].prelim + v.children[len(v.children)-1].prelim) / 2
		if w != nil {
			v.prelim = w.prelim + separation(v, w)
			v.mod = v.prelim - midpoint
		} else {
			v.prelim = midpoint
		}
	} else if w != nil {
		v.prelim = w.prelim + separation(v, w)
	}
	defaultAncestor := v.parent.ancestor
	if defaultAncestor == nil {
		defaultAncestor = siblings[0]
	}
	v.parent.ancestor = apportion(v, w, defaultAncestor)
}

func apportion(v, w, ancestor *tidy) *tidy {
	if w == nil {
		return ancestor
	}
	vip, vop := v, v
	vim := w
	vom := v.parent.children[0]
	sip, sop := vip.mod, vop.mod
	sim, som := vim.mod, vom.mod
	for {
		vim = nextRight(vim)
		vip = nextLeft(vip)
		if vim == nil || vip == nil {
			break
		}
		vom = nextLeft(vom)
		vop = nextRight(vop)
		vop.a = v
		shift := vim.prelim + sim - vip.prelim - sip + separation(vim, vip)
		if shift > 0 {
			moveSubtree(nextAncestor(vim, v, ancestor), v, shift)
			sip += shift
			sop += shift
		}
		sim += vim.mod
		sip += vip.mod
		som += vom.mod
		sop += vop.mod
	}
	if vim != nil && nextRight(vop) == nil {
		vop.thread = vim
		vop.mod += sim - sop
	}
	if vip != nil && nextLeft(vom) == nil {
		vom.thread = vip
		vom.mod += sip - som
		ancestor = v
	}
	return ancestor
}

func secondWalk(v *tidy) {
	v.x = v.prelim + v.parent.mod
	v.mod += v.parent.mod
	for _, child := range v.children {
		secondWalk(child)
	}
}

// tidyPositions runs the walk and returns breadth positions normalized to
// [0, breadth] and depth positions scaled to [0, depth].
func tidyPositions(root *tidy, breadth, depth float64) (xs, ys map[*tidy]float64) {
	sentinel := &tidy{children: []*tidy{root}}
	root.parent = sentinel
	firstWalk(root)
	sentinel.mod = -root.prelim
	secondWalk(root)

	left, right, bottom := root, root, root
	var visit func(*tidy)
	var all []*tidy
	visit = func(n *tidy) {
		all = append(all, n)
		if n.x < left.x {
			left = n
		}
		if n.x > right.x {
			right = n
		}
		if n.depth > bottom.depth {
			bottom = n
		}
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(root)

	s := 1.0
	if left != right {
		s = separation(left, right) / 2
	}
	tx := s - left.x
	kx := breadth / (right.x + s + tx)
	ky := depth
	if bottom.depth > 0 {
		ky = depth / float64(bottom.depth)
	}

	xs = make(map[*tidy]float64, len(all))
	ys = make(map[*tidy]float64, len(all))
	for _, n := range all {
		xs[n] = (n.x + tx) * kx
		ys[n] = float64(n.depth) * ky
	}
	root.parent = nil
	return xs, ys
}
