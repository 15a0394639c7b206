package docker

import "strings"

// ToEnginePath translates a host filesystem path into the path syntax the
// container engine expects for bind mounts. On Windows hosts the engine
// expects POSIX-style paths, so a drive-letter path like `C:\Bots\alpha` is
// rewritten to `/c/Bots/alpha`. Paths that are already POSIX-style are
// returned unchanged, which makes the translation idempotent.
//
// This is a pure function so the Windows behavior can be exercised on any
// platform.
func ToEnginePath(path string) string {
	if !hasDrivePrefix(path) {
		return path
	}

	drive := strings.ToLower(path[:1])
	rest := strings.ReplaceAll(path[2:], `\`, "/")
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return "/" + drive
	}
	return "/" + drive + "/" + rest
}

// hasDrivePrefix reports whether the path starts with a Windows drive
// letter, e.g. `C:\` or `d:/`.
func hasDrivePrefix(path string) bool {
	if len(path) < 2 || path[1] != ':' {
		return false
	}
	c := path[0]
	isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	if !isLetter {
		return false
	}
	return len(path) == 2 || path[2] == '\\' || path[2] == '/'
}
