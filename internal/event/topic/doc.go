// Package topic provides hierarchical topic parsing and subscription matching for the event bus.
//
// # Topic Format
//
// Topics use dot-notation to create hierarchical namespaces:
//
//	didSave.document
//	takeActionRequest.save
//	didNavigate-popup.settings
//
// Within a segment, "-" separates sub-topics. A subscription segment matches a
// published segment that equals it or extends it with further "-suffix" parts:
//
//	didNavigate          matches didNavigate, didNavigate-popup, didNavigate-popup-large
//	didNavigate-popup    matches didNavigate-popup, didNavigate-popup-large
//
// # Wildcards
//
// An omitted segment in a subscription pattern is a wildcard for that position,
// and every pattern implicitly admits trailing segments:
//
//	didSave              matches didSave, didSave.document, didSave.a.b
//	.document            matches didSave.document, willSave.document
//	didSave..draft       matches didSave.document.draft
//	""                   matches everything
//
// # Ordering
//
// Index.Match returns matched values ordered by specificity: patterns with more
// non-wildcard segments come first, ties are broken by the number of sub-topic
// separators, and equal weights keep their insertion order.
//
// # Usage
//
//	idx := topic.NewIndex[string]()
//	idx.Insert("didSave", "a")
//	idx.Insert("didSave.document", "b")
//
//	matches := idx.Match("didSave.document-draft")
//	// matches == []string{"b", "a"}
package topic
