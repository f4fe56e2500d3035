package reliability

import "errors"

var errPeerClosed = errors.New("peer state closed")
