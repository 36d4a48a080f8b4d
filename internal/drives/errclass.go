package drives

import "strings"

// ErrorCode classifies a failed drive operation. The set is closed; every
// failure resolves to exactly one code, falling back to CodeUnknown.
type ErrorCode string

const (
	CodeLUKSEncryptedDrive ErrorCode = "LUKS_ENCRYPTED_DRIVE"
	CodeNoStoredPassword   ErrorCode = "NO_STORED_PASSWORD"
	CodeDeviceNotEncrypted ErrorCode = "DEVICE_NOT_LUKS_ENCRYPTED"
	CodeLUKSError          ErrorCode = "LUKS_ERROR"
	CodeInvalidPassword    ErrorCode = "INVALID_PASSWORD"
	CodeDriveNotFound      ErrorCode = "DRIVE_NOT_FOUND"
	CodePermissionError    ErrorCode = "PERMISSION_ERROR"
	CodeAlreadyMounted     ErrorCode = "ALREADY_MOUNTED"
	CodeUnknown            ErrorCode = "UNKNOWN_ERROR"
)

// classifyRules are evaluated in order; the first rule with a matching
// needle wins. Order matters: the explicit backend tokens come before the
// broad "luks" catch-all, and invalid-password needles are phrased so they
// never contain that substring.
var classifyRules = []struct {
	code    ErrorCode
	needles []string
}{
	{CodeLUKSEncryptedDrive, []string{"luks_encrypted_drive"}},
	{CodeNoStoredPassword, []string{"no_stored_password", "no stored password"}},
	{CodeDeviceNotEncrypted, []string{"device_not_luks_encrypted"}},
	{CodeLUKSError, []string{"luks", "cryptsetup", "device-mapper"}},
	{CodeInvalidPassword, []string{
		"no key available with this passphrase",
		"invalid password",
		"wrong passphrase",
		"incorrect password",
	}},
	{CodeDriveNotFound, []string{"not found", "does not exist", "no such device", "no medium"}},
	{CodePermissionError, []string{
		"permission denied",
		"operation not permitted",
		"not authorized",
		"polkit",
	}},
	{CodeAlreadyMounted, []string{"already mounted"}},
}

// Classify maps raw backend error text onto an ErrorCode. Matching is
// case-insensitive substring search over the ordered rule table; text that
// matches nothing is CodeUnknown, and the caller keeps the raw text.
func Classify(raw string) ErrorCode {
	lower := strings.ToLower(raw)
	for _, rule := range classifyRules {
		for _, needle := range rule.needles {
			if strings.Contains(lower, needle) {
				return rule.code
			}
		}
	}
	return CodeUnknown
}

// ClassifyError is Classify over an error value. A nil error is CodeUnknown;
// callers should not classify successes.
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	return Classify(err.Error())
}
