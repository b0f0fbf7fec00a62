package catalog

import (
	"net/netip"
	"regexp"
	"strconv"
	"strings"
)

// Four groups of one to three digits. Leading zeros pass ("01.02.03.04" is valid), only the
// digit count and the 0-255 range are checked.
var ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// ValidIPv4 reports whether s is a dotted-quad IPv4 address with every octet in 0-255.
func ValidIPv4(s string) bool {
	if !ipv4Pattern.MatchString(s) {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// CanonicalIPv4 parses an address accepted by ValidIPv4 into its canonical form.
// netip refuses leading zeros, so the octets are converted one by one.
func CanonicalIPv4(s string) (netip.Addr, error) {
	if !ValidIPv4(s) {
		return netip.Addr{}, &ValidationError{Field: "address", Value: s, Reason: "not a dotted-quad IPv4 address"}
	}
	var octets [4]byte
	for i, part := range strings.Split(s, ".") {
		n, _ := strconv.Atoi(part)
		octets[i] = byte(n)
	}
	return netip.AddrFrom4(octets), nil
}
