package topic

import "sort"

// Index is a subscription index keyed by topic pattern.
// It provides lookup of every value whose pattern matches a published topic,
// ordered by specificity.
//
// Index is not safe for concurrent use; the bus owns one instance and only
// touches it from its scheduling turn.
type Index[T any] struct {
	root *indexNode[T]
	size int
}

// indexNode represents a node in the pattern tree.
type indexNode[T any] struct {
	children map[string]*indexNode[T]
	entries  []entry[T] // Values registered exactly at this node
}

// entry is a value together with the pattern it was registered under.
type entry[T any] struct {
	pattern string
	weight  Weight
	value   T
}

// newIndexNode creates a new index node.
func newIndexNode[T any]() *indexNode[T] {
	return &indexNode[T]{
		children: make(map[string]*indexNode[T]),
	}
}

// isEmpty returns true if the node has no children and no entries.
func (n *indexNode[T]) isEmpty() bool {
	return len(n.children) == 0 && len(n.entries) == 0
}

// sortedKeys returns the child keys in lexical order for deterministic walks.
func (n *indexNode[T]) sortedKeys() []string {
	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewIndex creates a new empty index.
func NewIndex[T any]() *Index[T] {
	return &Index[T]{
		root: newIndexNode[T](),
	}
}

// Insert registers a value under the given pattern.
// Every pattern is valid, including the empty pattern which matches everything.
func (idx *Index[T]) Insert(pattern string, value T) {
	// Initialize root if zero-value Index is used
	if idx.root == nil {
		idx.root = newIndexNode[T]()
	}

	node := idx.root
	for _, seg := range Split(pattern) {
		child := node.children[seg]
		if child == nil {
			child = newIndexNode[T]()
			node.children[seg] = child
		}
		node = child
	}

	node.entries = append(node.entries, entry[T]{
		pattern: pattern,
		weight:  ComputeWeight(pattern),
		value:   value,
	})
	idx.size++
}

// RemoveFunc removes every value for which match returns true, wherever it is
// registered, and prunes nodes left empty. The removed values are returned in
// tree-walk order. Calling it again for the same values is a no-op.
func (idx *Index[T]) RemoveFunc(match func(T) bool) []T {
	if idx.root == nil {
		return nil
	}
	var removed []T
	idx.removeRecursive(idx.root, match, &removed)
	idx.size -= len(removed)
	return removed
}

// removeRecursive removes matching entries below node.
func (idx *Index[T]) removeRecursive(node *indexNode[T], match func(T) bool, removed *[]T) {
	if len(node.entries) > 0 {
		// Build a new slice; callers may still hold the old one from a Match.
		kept := make([]entry[T], 0, len(node.entries))
		for _, e := range node.entries {
			if match(e.value) {
				*removed = append(*removed, e.value)
				continue
			}
			kept = append(kept, e)
		}
		node.entries = kept
	}

	for _, key := range node.sortedKeys() {
		child := node.children[key]
		idx.removeRecursive(child, match, removed)
		if child.isEmpty() {
			delete(node.children, key)
		}
	}
}

// Match returns all values whose pattern matches the published topic name,
// most specific first. Values of equal weight keep their relative order.
func (idx *Index[T]) Match(name string) []T {
	if idx.root == nil {
		return nil
	}

	var found []entry[T]
	idx.matchRecursive(idx.root, Split(name), &found)

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].weight.Compare(found[j].weight) > 0
	})

	result := make([]T, len(found))
	for i, e := range found {
		result[i] = e.value
	}
	return result
}

// matchRecursive collects entries at every visited node, so a short pattern
// matches any longer published topic.
func (idx *Index[T]) matchRecursive(node *indexNode[T], segments []string, found *[]entry[T]) {
	*found = append(*found, node.entries...)

	if len(segments) == 0 {
		return
	}

	segment, rest := segments[0], segments[1:]

	// An empty published segment only matches wildcard subscriptions.
	if segment != "" {
		if HasSubTopics(segment) {
			for _, prefix := range SubTopicPrefixes(segment) {
				if child := node.children[prefix]; child != nil {
					idx.matchRecursive(child, rest, found)
				}
			}
		} else if child := node.children[segment]; child != nil {
			idx.matchRecursive(child, rest, found)
		}
	}

	if child := node.children[Wildcard]; child != nil {
		idx.matchRecursive(child, rest, found)
	}
}

// Len returns the number of registered values.
func (idx *Index[T]) Len() int {
	return idx.size
}

// Each calls fn for every registered value in tree-walk order until fn returns false.
func (idx *Index[T]) Each(fn func(pattern string, value T) bool) {
	if idx.root == nil {
		return
	}
	idx.eachRecursive(idx.root, fn)
}

// eachRecursive walks the tree depth-first with sorted child keys.
func (idx *Index[T]) eachRecursive(node *indexNode[T], fn func(string, T) bool) bool {
	for _, e := range node.entries {
		if !fn(e.pattern, e.value) {
			return false
		}
	}

	for _, k := range node.sortedKeys() {
		if !idx.eachRecursive(node.children[k], fn) {
			return false
		}
	}
	return true
}

// Patterns returns the distinct patterns with registered values.
func (idx *Index[T]) Patterns() []string {
	seen := make(map[string]struct{})
	var patterns []string
	idx.Each(func(pattern string, _ T) bool {
		if _, ok := seen[pattern]; !ok {
			seen[pattern] = struct{}{}
			patterns = append(patterns, pattern)
		}
		return true
	})
	return patterns
}

// NodeCount returns the total number of nodes in the index, root included.
func (idx *Index[T]) NodeCount() int {
	if idx.root == nil {
		return 0
	}
	count := 0
	countNodes(idx.root, &count)
	return count
}

// countNodes recursively counts nodes.
func countNodes[T any](node *indexNode[T], count *int) {
	*count++
	for _, child := range node.children {
		countNodes(child, count)
	}
}
