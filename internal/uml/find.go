package uml

// Finder locates elements by XMI ID with a depth-first pre-order scan.
//
// The scan is linear in the size of the searched sub-tree. The assembler calls it
// once per node, which is quadratic on large documents; there is no index.
type Finder struct {
	model  *Model
	visits int
}

// NewFinder creates a finder over m.
func NewFinder(m *Model) *Finder {
	return &Finder{model: m}
}

// Visits returns the number of elements examined since the finder was created.
func (f *Finder) Visits() int {
	return f.visits
}

// Find returns the first element below from (inclusive) whose XMI ID matches.
// The remaining traversal is skipped once a match is found.
func (f *Finder) Find(from ElementID, xmiID string) (ElementID, bool) {
	if xmiID == "" || f.model.Get(from) == nil {
		return NoElement, false
	}
	stack := []ElementID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e := f.model.elements[id]
		f.visits++
		if e.XMIID == xmiID {
			return id, true
		}
		for i := len(e.Children) - 1; i >= 0; i-- {
			stack = append(stack, e.Children[i])
		}
	}
	return NoElement, false
}

// FindAll returns every element below from whose XMI ID matches, in pre-order.
// It exists for duplicate diagnostics; resolution always uses Find.
func (f *Finder) FindAll(from ElementID, xmiID string) []ElementID {
	var out []ElementID
	f.model.Walk(from, func(e *Element) bool {
		f.visits++
		if e.XMIID == xmiID {
			out = append(out, e.ID)
		}
		return true
	})
	return out
}

// Find is shorthand for a whole-model lookup.
func (m *Model) Find(xmiID string) (ElementID, bool) {
	return NewFinder(m).Find(RootID, xmiID)
}
