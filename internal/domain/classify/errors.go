package classify

import "errors"

// ErrUnclassifiable is returned for role and venue combinations with no rule.
var ErrUnclassifiable = errors.New("unclassifiable connection")
