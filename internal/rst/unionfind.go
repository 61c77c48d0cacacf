package rst

// unitSets is a union-find over unit ids. Each set remembers its top-most
// unit, i.e. the discussion root that every member resolves to.
type unitSets struct {
	parent map[string]string
	size   map[string]int
	top    map[string]string
}

func newUnitSets() *unitSets {
	return &unitSets{
		parent: make(map[string]string),
		size:   make(map[string]int),
		top:    make(map[string]string),
	}
}

func (u *unitSets) add(unit string) {
	if _, ok := u.parent[unit]; ok {
		return
	}
	u.parent[unit] = unit
	u.size[unit] = 1
	u.top[unit] = unit
}

func (u *unitSets) find(unit string) string {
	u.add(unit)
	root := unit
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for unit != root {
		next := u.parent[unit]
		u.parent[unit] = root
		unit = next
	}
	return root
}

// union merges the set of child into the set of parent. The merged set keeps
// the top unit of parent's set.
func (u *unitSets) union(parent, child string) {
	rp, rc := u.find(parent), u.find(child)
	if rp == rc {
		return
	}
	top := u.top[rp]
	if u.size[rp] < u.size[rc] {
		rp, rc = rc, rp
	}
	u.parent[rc] = rp
	u.size[rp] += u.size[rc]
	u.top[rp] = top
	delete(u.size, rc)
	delete(u.top, rc)
}

// root returns the top-most unit of the discussion containing unit.
func (u *unitSets) root(unit string) string {
	return u.top[u.find(unit)]
}
