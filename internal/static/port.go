package static

import (
	"fmt"
	"net"
	"strconv"
)

// Listen binds the first free TCP port in [startPort, startPort+attempts)
// on host and returns the listener together with the chosen port. Returning
// the listener itself, rather than probing and re-binding, avoids losing the
// port to another process between the probe and the bind.
func Listen(host string, startPort, attempts int) (net.Listener, int, error) {
	for port := startPort; port < startPort+attempts; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			return ln, ln.Addr().(*net.TCPAddr).Port, nil
		}
	}
	return nil, 0, fmt.Errorf("no available port in range %d–%d on %s", startPort, startPort+attempts-1, host)
}
