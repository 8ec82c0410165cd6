package scene

import (
	"errors"
	"fmt"
)

// Error categories. Every specific error below wraps exactly one of them, so
// callers can branch on the category with errors.Is.
var (
	ErrStructural       = errors.New("structural violation")
	ErrNotFound         = errors.New("not found")
	ErrMalformedInput   = errors.New("malformed input")
	ErrDomainConstraint = errors.New("domain constraint violation")
)

// Structural violations. The tree is left unchanged when one is returned.
var (
	ErrDuplicateKey   = fmt.Errorf("%w: object index already in tree", ErrStructural)
	ErrNoSuchParent   = fmt.Errorf("%w: parent index not in tree", ErrStructural)
	ErrNoSuchChild    = fmt.Errorf("%w: child index not in tree", ErrStructural)
	ErrNotDirectChild = fmt.Errorf("%w: child is not directly under parent", ErrStructural)
	ErrCycle          = fmt.Errorf("%w: new parent is inside the moved subtree", ErrStructural)
	ErrInvalidKey     = fmt.Errorf("%w: invalid object index", ErrStructural)
	ErrAttached       = fmt.Errorf("%w: object already belongs to a tree", ErrStructural)
)

var (
	ErrObjectNotFound  = fmt.Errorf("%w: object", ErrNotFound)
	ErrElementNotFound = fmt.Errorf("%w: element", ErrNotFound)
	ErrUnknownGroup    = fmt.Errorf("%w: unknown group index", ErrMalformedInput)
	ErrMissingGeometry = fmt.Errorf("%w: element has no geometry", ErrDomainConstraint)
	ErrElementOwned    = fmt.Errorf("%w: element already belongs to an object", ErrDomainConstraint)
)
