// Package device detects the device class and coarse network conditions of
// the host the player runs on.
package device

import "strings"

// NetworkClass is a coarse bucket of the current network conditions.
type NetworkClass string

const (
	NetworkFast   NetworkClass = "fast"
	NetworkMedium NetworkClass = "medium"
	NetworkSlow   NetworkClass = "slow"
)

func (n NetworkClass) String() string {
	return string(n)
}

// Valid reports whether n is one of the known network classes.
func (n NetworkClass) Valid() bool {
	switch n {
	case NetworkFast, NetworkMedium, NetworkSlow:
		return true
	}
	return false
}

// Profile is an immutable snapshot of the device capabilities.
// It is replaced wholesale on re-detection.
type Profile struct {
	IsMobile                     bool
	IsIOS                        bool
	IsAndroid                    bool
	SupportsAdvancedAudioContext bool
	Network                      NetworkClass
}

// DefaultProfile is the conservative profile used when detection fails.
func DefaultProfile() Profile {
	return Profile{
		IsMobile:                     false,
		IsIOS:                        false,
		IsAndroid:                    false,
		SupportsAdvancedAudioContext: false,
		Network:                      NetworkFast,
	}
}

// Kind returns a short human-readable device class.
func (p Profile) Kind() string {
	switch {
	case p.IsIOS:
		return "ios"
	case p.IsAndroid:
		return "android"
	case p.IsMobile:
		return "mobile"
	default:
		return "desktop"
	}
}

// ClassifyEffectiveType maps a connection "effective type" hint to a network
// class. Unknown or empty hints are optimistic.
func ClassifyEffectiveType(effectiveType string) NetworkClass {
	switch strings.ToLower(strings.TrimSpace(effectiveType)) {
	case "slow-2g", "2g":
		return NetworkSlow
	case "3g":
		return NetworkMedium
	default:
		return NetworkFast
	}
}

// Mobile user-agent signatures. Order matters: iOS devices are matched first
// so an iPad never reports as generic mobile.
var (
	iosSignatures     = []string{"iphone", "ipad", "ipod", "ios"}
	androidSignatures = []string{"android"}
	mobileSignatures  = []string{
		"webos", "blackberry", "bb10", "iemobile", "opera mini",
		"windows phone", "kindle", "silk", "mobile", "tablet",
	}
)

type deviceClass struct {
	mobile  bool
	ios     bool
	android bool
}

func classifyUserAgent(ua string) deviceClass {
	lower := strings.ToLower(ua)

	if containsAny(lower, iosSignatures) {
		return deviceClass{mobile: true, ios: true}
	}
	if containsAny(lower, androidSignatures) {
		return deviceClass{mobile: true, android: true}
	}
	if containsAny(lower, mobileSignatures) {
		return deviceClass{mobile: true}
	}
	return deviceClass{}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
