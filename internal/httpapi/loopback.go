package httpapi

import (
	"log"
	"net"
	"net/http"
	"strings"
)

// isLoopbackRequest checks if the request originates from the local machine.
// This restricts the tick endpoints to the local scheduler or an operator
// with shell access to the host.
func isLoopbackRequest(r *http.Request) bool {
	// RemoteAddr is "host:port" ("[host]:port" for IPv6), or a socket path.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if isUnixSocketRemoteAddr(r.RemoteAddr) {
			return true
		}
		// If we can't parse the address, be conservative and reject.
		log.Printf("httpapi: failed to parse RemoteAddr %q: %v", r.RemoteAddr, err)
		return false
	}

	ip := net.ParseIP(host)
	if ip == nil {
		log.Printf("httpapi: failed to parse IP from host %q", host)
		return false
	}

	return ip.IsLoopback()
}

func isUnixSocketRemoteAddr(remoteAddr string) bool {
	if remoteAddr == "" {
		return true
	}
	if strings.HasPrefix(remoteAddr, "/") || strings.HasPrefix(remoteAddr, "@") {
		return true
	}
	return false
}
