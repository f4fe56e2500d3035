package transport

import "fmt"

func errConnNotFound(address string) error {
	return fmt.Errorf("transport: no connection for %s", address)
}
