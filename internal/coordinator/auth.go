package coordinator

import "crypto/subtle"

// checkPassword compares the supplied value against the configured
// coordinator password in constant time. An empty configured password
// disables the gate (local/dev use, spec §4.6).
func (s *Server) checkPassword(given string) bool {
	if s.password == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(s.password)) == 1
}
