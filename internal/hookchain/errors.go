package hookchain

import "errors"

// ErrUnknownSite is returned by catalogues when no call site has the name.
var ErrUnknownSite = errors.New("unknown hook site")
