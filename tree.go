package transformer

const defaultMaxSeekDepth = 20

// Tree owns the frame graph's edges and answers chain queries via
// breadth-first search. Element ownership is exclusive to the tree; handles
// hold non-owning references into the chains Tree hands back.
type Tree struct {
	elements     []TransformationElement
	maxSeekDepth int
}

// NewTree returns a Tree with the given BFS depth bound. A maxSeekDepth <= 0
// falls back to the reference library's default of 20.
func NewTree(maxSeekDepth int) *Tree {
	if maxSeekDepth <= 0 {
		maxSeekDepth = defaultMaxSeekDepth
	}
	return &Tree{maxSeekDepth: maxSeekDepth}
}

// AddTransformation appends elem and an inverse view of it; both become
// candidate edges for future chain searches.
func (t *Tree) AddTransformation(elem TransformationElement) {
	t.elements = append(t.elements, elem, newInverseElement(elem))
}

// AvailableElements returns every currently registered candidate edge,
// including the automatically-added inverse views.
func (t *Tree) AvailableElements() []TransformationElement {
	out := make([]TransformationElement, len(t.elements))
	copy(out, t.elements)
	return out
}

// ElementCounts returns the number of static and dynamic edges registered,
// counting each inverse view under the kind of the element it wraps. Ported
// from the reference library's TransformationTree::getElementsCount, used
// for diagnostics.
func (t *Tree) ElementCounts() (staticCount, dynamicCount int) {
	for _, e := range t.elements {
		inner := e
		if inv, ok := e.(*inverseElement); ok {
			inner = inv.Element()
		}
		if _, ok := inner.(*dynamicElement); ok {
			dynamicCount++
		} else {
			staticCount++
		}
	}
	return staticCount, dynamicCount
}

// DumpTree logs every registered edge at the diag level. Ported from the
// reference library's TransformationTree::dumpTree.
func (t *Tree) DumpTree() {
	for _, e := range t.elements {
		inv, isInv := e.(*inverseElement)
		inner := e
		if isInv {
			inner = inv.Element()
		}
		kind := "static"
		if _, isDyn := inner.(*dynamicElement); isDyn {
			kind = "dyn"
		}
		if isInv {
			diagf("(inv,%s) %s > %s", kind, e.SourceFrame(), e.TargetFrame())
		} else {
			diagf("(%s) %s > %s", kind, e.SourceFrame(), e.TargetFrame())
		}
	}
}

// Clear drops every registered element. Callers are responsible for
// invalidating any handles that reference chains built from them first.
func (t *Tree) Clear() {
	t.elements = nil
}

type treeNode struct {
	frame           Frame
	parent          *treeNode
	parentToCurNode TransformationElement
	children        []*treeNode
}

// GetTransformationChain runs a breadth-first search from `from` looking
// for `to`. If from == to the chain is empty (identity). At each expanded
// node every edge whose source matches the node's frame is added as a
// child, except an edge whose target equals the node's immediate parent
// frame (this prevents A->B->A->B bounces without forbidding longer
// cycles, which the depth bound contains). The first child found to match
// `to` wins; its path back to the root, in that order (nearest `to` first,
// nearest `from` last), is the returned chain — the same order
// Transformation.Get composes in to reproduce the reference's
// `result = result * trans` accumulation exactly.
func (t *Tree) GetTransformationChain(from, to Frame) ([]TransformationElement, bool) {
	if from == to {
		return nil, true
	}

	root := &treeNode{frame: from}
	curLevel := []*treeNode{root}

	for depth := 0; depth < t.maxSeekDepth && len(curLevel) > 0; depth++ {
		var nextLevel []*treeNode

		for _, node := range curLevel {
			for _, elem := range t.elements {
				if elem.SourceFrame() != node.frame {
					continue
				}
				target := elem.TargetFrame()
				if node.parent != nil && target == node.parent.frame {
					continue
				}
				node.children = append(node.children, &treeNode{
					frame:           target,
					parent:          node,
					parentToCurNode: elem,
				})
			}

			for _, child := range node.children {
				if child.frame == to {
					chain := chainFromNode(child)
					diagf("found chain from %s to %s, length %d", from, to, len(chain))
					return chain, true
				}
			}

			nextLevel = append(nextLevel, node.children...)
		}

		curLevel = nextLevel
	}

	diagf("could not find chain from %s to %s", from, to)
	return nil, false
}

func chainFromNode(leaf *treeNode) []TransformationElement {
	var chain []TransformationElement
	for cur := leaf; cur.parent != nil; cur = cur.parent {
		chain = append(chain, cur.parentToCurNode)
	}
	return chain
}
