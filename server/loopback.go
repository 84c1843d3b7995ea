package server

import (
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
)

// loopbackIPv4 is the only peer address the hidden-service endpoint is
// configured to forward to.
var loopbackIPv4 = net.IPv4(127, 0, 0, 1)

// isValidClientIP reports whether ip is exactly the IPv4 loopback address.
// IPv6 ::1 and every other address, including other 127.0.0.0/8 addresses,
// are rejected: the hidden-service front end only ever connects from
// 127.0.0.1, so anything else is an out-of-band connection by
// construction.
func isValidClientIP(ip net.IP) bool {
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	return v4.Equal(loopbackIPv4)
}

// LoopbackGuard wraps next so that a request whose peer address is not
// the IPv4 loopback receives no response at all: the underlying TCP
// connection is closed without writing a status line. A plain 4xx/5xx
// response would be visible to an out-of-band observer, where a refused
// connection with no response at all is not.
func LoopbackGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip := net.ParseIP(host)

		if ip == nil || !isValidClientIP(ip) {
			logrus.WithFields(logrus.Fields{
				"function": "LoopbackGuard",
				"package":  "server",
				"peer":     r.RemoteAddr,
				"path":     r.URL.Path,
			}).Warn("rejecting request from non-loopback peer")

			hijacker, ok := w.(http.Hijacker)
			if !ok {
				// No hijacking support (e.g. in some test harnesses): the
				// closest available behavior is a 403 status with no
				// body.
				w.WriteHeader(http.StatusForbidden)
				return
			}
			conn, _, err := hijacker.Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}
