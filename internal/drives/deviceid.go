package drives

import "strings"

// CanonicalDeviceID normalizes any accepted drive reference to the logical
// "usb_"-prefixed form. It is idempotent: an already-canonical ID passes
// through unchanged.
//
//	"usb_sdb1"  -> "usb_sdb1"
//	"/dev/sdb1" -> "usb_sdb1"
//	"sdb1"      -> "usb_sdb1"
func CanonicalDeviceID(pathOrID string) string {
	if strings.HasPrefix(pathOrID, "usb_") {
		return pathOrID
	}
	name := strings.TrimPrefix(pathOrID, "/dev/")
	return "usb_" + name
}

// DevicePath derives the OS-level path for a canonical device ID. When the
// device name does not end in a digit it names a whole disk, and the first
// partition is addressed by appending "1".
//
//	"usb_sdb1" -> "/dev/sdb1"
//	"usb_sdb"  -> "/dev/sdb1"
func DevicePath(id string) string {
	name := strings.TrimPrefix(id, "usb_")
	if name == "" {
		return "/dev/"
	}
	last := name[len(name)-1]
	if last < '0' || last > '9' {
		name += "1"
	}
	return "/dev/" + name
}
