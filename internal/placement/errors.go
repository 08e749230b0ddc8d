package placement

import (
	"errors"

	"github.com/awslabs/operatorpkg/serrors"
)

// Sentinel errors for the §7 error-handling table. Callers should use
// errors.Is against these, not string matching.
var (
	// ErrCycle: the allocating flag was already set, meaning placement
	// re-entered a resource it hadn't finished placing (spec §3
	// invariant: "allocating is set on entry to placement and cleared
	// on exit; if encountered again, a dependency cycle is present").
	ErrCycle = errors.New("dependency cycle detected during placement")

	// ErrAssertionFailed: a managed resource was assigned a node with
	// no top-allowed mapping, which spec §4.1 says "should not occur".
	ErrAssertionFailed = errors.New("top-allowed node missing for managed resource")
)

// WrapCycle attaches the failing resource id as structured context,
// mirroring the teacher's serrors.Wrap(err, key, val) idiom.
func WrapCycle(resourceID string) error {
	return serrors.Wrap(ErrCycle, "resource", resourceID)
}
