package validate

import "regexp"

// uuidPattern matches the canonical 8-4-4-4-12 hex form only. Resource ids
// must match it before any store access; looser forms (braced, URN) are
// rejected.
var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// UUID reports whether id is a canonical lowercase-or-uppercase UUID string.
func UUID(id string) bool {
	if len(id) != 36 {
		return false
	}
	return uuidPattern.MatchString(toLower(id))
}

func toLower(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i, ch := range b {
		if ch >= 'A' && ch <= 'Z' {
			b[i] = ch + ('a' - 'A')
		}
	}
	return string(b)
}
