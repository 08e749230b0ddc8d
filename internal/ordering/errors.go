package ordering

import "errors"

// ErrMissingChildAction is logged (spec §7 "Missing child action") when
// interleaved pairing can't find a first_action or then_action for a
// child that isn't orphaned and whose task isn't stop/demote.
var ErrMissingChildAction = errors.New("interleave pairing: missing child action")
