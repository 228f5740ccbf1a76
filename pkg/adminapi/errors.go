package adminapi

import "errors"

// ErrNilProvider is returned when the API is built without a rule set
// provider.
var ErrNilProvider = errors.New("rule set provider is nil")
