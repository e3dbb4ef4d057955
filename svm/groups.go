package svm

// classGroups is the training set reordered by class.
type classGroups struct {
	label []int
	start []int
	count []int
	// perm lists example indices grouped by class, in label order.
	perm []int
}

// groupClasses collects the distinct labels of prob in order of first
// occurrence. With exactly the labels -1 and +1, seen in that order, the two
// are swapped so that +1 becomes the positive class of the binary problem.
func groupClasses(prob *Problem) classGroups {
	l := prob.Len()
	var g classGroups
	dataLabel := make([]int, l)
	index := make(map[int]int)

	for i := 0; i < l; i++ {
		lab := int(prob.Y[i])
		j, ok := index[lab]
		if !ok {
			j = len(g.label)
			index[lab] = j
			g.label = append(g.label, lab)
			g.count = append(g.count, 0)
		}
		g.count[j]++
		dataLabel[i] = j
	}

	if len(g.label) == 2 && g.label[0] == -1 && g.label[1] == 1 {
		g.label[0], g.label[1] = g.label[1], g.label[0]
		g.count[0], g.count[1] = g.count[1], g.count[0]
		for i := range dataLabel {
			dataLabel[i] = 1 - dataLabel[i]
		}
	}

	nr := len(g.label)
	g.start = make([]int, nr)
	for i := 1; i < nr; i++ {
		g.start[i] = g.start[i-1] + g.count[i-1]
	}
	g.perm = make([]int, l)
	next := append([]int(nil), g.start...)
	for i := 0; i < l; i++ {
		g.perm[next[dataLabel[i]]] = i
		next[dataLabel[i]]++
	}
	return g
}
