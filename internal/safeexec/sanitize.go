package safeexec

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxArgLen bounds a single argument — the output buffer an argument is
// ultimately copied into, grounded on the pipeline's 32 KB output cap.
const MaxArgLen = 32 * 1024

// MaxArgs is the most arguments a single invocation may carry.
const MaxArgs = 32

// forbiddenChars are stripped silently from an argument before the
// allowed-alphabet check runs — shell metacharacters that could otherwise
// reintroduce command injection even though the pipeline never invokes a
// shell to run the whitelisted command itself.
const forbiddenChars = ";|&$`()<>'\"\\*?[]{}~!"

// allowedExtra is the set of non-alphanumeric characters a sanitized
// argument may contain, beyond space.
const allowedExtra = ".-/_:=,@"

// dangerousPathSubstrings reject any argument that looks like it is
// reaching for system files, regardless of whether it resolves inside a
// workspace.
var dangerousPathSubstrings = []string{
	"/etc/", "/sys/", "/proc/", "/dev/", "/boot/", "shadow", "passwd", ".ssh/",
}

// ValidatePath rejects an argument containing a path-traversal or
// system-path pattern. Arguments without a '/' are not path-like and
// always pass.
func ValidatePath(arg string) error {
	if !strings.Contains(arg, "/") {
		return nil
	}
	if strings.Contains(arg, "..") {
		return fmt.Errorf("Invalid argument")
	}
	for _, bad := range dangerousPathSubstrings {
		if strings.Contains(arg, bad) {
			return fmt.Errorf("Invalid argument")
		}
	}
	if strings.ContainsRune(arg, 0) {
		return fmt.Errorf("Invalid argument")
	}
	return nil
}

// SanitizeArg validates arg's length and path-safety, strips forbidden
// shell metacharacters, and copies through only the allowed alphabet
// ([A-Za-z0-9] plus space and allowedExtra). Any character outside that
// alphabet after stripping is dropped, never rejected outright — matching
// the pipeline's "strip silently, then copy allowed" two-step.
func SanitizeArg(arg string) (string, error) {
	if len(arg) > MaxArgLen {
		return "", fmt.Errorf("argument too long")
	}
	if err := ValidatePath(arg); err != nil {
		return "", err
	}

	var out strings.Builder
	for _, r := range arg {
		if strings.ContainsRune(forbiddenChars, r) {
			continue
		}
		if r == ' ' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || strings.ContainsRune(allowedExtra, r) {
			out.WriteRune(r)
			continue
		}
		// characters outside the allowed alphabet are dropped silently
	}
	return out.String(), nil
}

// ParseInt parses s as a base-10 integer, requiring the entire string to
// be consumed and the result to fall within [min, max].
func ParseInt(s string, min, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %s", s)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("integer out of range [%d,%d]: %d", min, max, n)
	}
	return n, nil
}
