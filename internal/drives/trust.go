package drives

import "fmt"

// UITrustLevel is the three-level vocabulary presented to callers. It does
// not line up one-to-one with the backend vocabulary; the mapping below is
// lossy and a round trip through the backend can change the value
// (Full -> trusted -> Full, but Partial -> untrusted -> Partial is the only
// stable pair; anything unknown degrades to Partial).
type UITrustLevel string

const (
	UITrustFull      UITrustLevel = "Full"
	UITrustPartial   UITrustLevel = "Partial"
	UITrustUntrusted UITrustLevel = "Untrusted"
)

// BackendTrust maps a UI trust level onto the backend vocabulary.
func BackendTrust(ui UITrustLevel) TrustLevel {
	switch ui {
	case UITrustFull:
		return TrustTrusted
	case UITrustUntrusted:
		return TrustBlocked
	default:
		return TrustUntrusted
	}
}

// UITrust maps a backend trust level back onto the UI vocabulary.
func UITrust(backend TrustLevel) UITrustLevel {
	switch backend {
	case TrustTrusted:
		return UITrustFull
	case TrustBlocked:
		return UITrustUntrusted
	default:
		return UITrustPartial
	}
}

// ParseTrustLevel validates a backend trust level string.
func ParseTrustLevel(s string) (TrustLevel, error) {
	switch TrustLevel(s) {
	case TrustTrusted, TrustUntrusted, TrustBlocked:
		return TrustLevel(s), nil
	}
	return "", fmt.Errorf("unknown trust level %q", s)
}
