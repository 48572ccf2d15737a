package user

import (
	"context"
	"math/rand"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20

	emailSuffixLength = 6
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	disallowedChars = regexp.MustCompile(`[^a-z0-9_]`)

	ReservedUsernames = []string{
		"admin", "api", "www", "mail", "support", "help",
		"about", "contact", "terms", "privacy", "faq",
	}

	blockedSubstrings = []string{"admin", "mod"}

	suggestionPrefixes = []string{"the", "super", "cool", "pro", "real", "happy"}
	suggestionSuffixes = []string{"007", "99", "123", "2024", "88", "77"}
)

const (
	msgTooShort    = "Username must be at least 3 characters"
	msgBadFormat   = "Username must be 3-20 characters, letters, numbers, underscores only"
	msgReserved    = "This username is reserved"
	msgBlocked     = "Username cannot contain admin or mod"
	msgTaken       = "Username is already taken"
	msgUnavailable = "Unable to check username availability"
)

// ExistsFunc reports whether a username is already claimed.
type ExistsFunc func(ctx context.Context, username string) (bool, error)

// ValidateUsername runs the format rules first and only consults exists
// when they pass. Failures are reported in the result, never as an error.
func ValidateUsername(ctx context.Context, username string, exists ExistsFunc) ValidationResult {
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return ValidationResult{Error: msgTooShort}
	}
	if !usernamePattern.MatchString(username) {
		return ValidationResult{Error: msgBadFormat}
	}

	lower := strings.ToLower(username)
	for _, r := range ReservedUsernames {
		if lower == r {
			return ValidationResult{Error: msgReserved}
		}
	}
	for _, s := range blockedSubstrings {
		if strings.Contains(lower, s) {
			return ValidationResult{Error: msgBlocked}
		}
	}

	if exists != nil {
		taken, err := exists(ctx, username)
		if err != nil {
			return ValidationResult{Error: msgUnavailable}
		}
		if taken {
			return ValidationResult{Error: msgTaken}
		}
	}
	return ValidationResult{Valid: true}
}

func IsValidUsernameFormat(username string) bool {
	return usernamePattern.MatchString(username)
}

// SanitizeUsername lowercases, drops everything outside [a-z0-9_] and
// truncates to the maximum length.
func SanitizeUsername(username string) string {
	s := disallowedChars.ReplaceAllString(strings.ToLower(username), "")
	if len(s) > MaxUsernameLength {
		s = s[:MaxUsernameLength]
	}
	return s
}

// FormatUsername turns "john_doe" into "John Doe".
func FormatUsername(username string) string {
	src := []rune(strings.ReplaceAll(username, "_", " "))
	out := make([]rune, len(src))
	prevWord := false
	for i, r := range src {
		word := isWordRune(r)
		if word && !prevWord && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out[i] = r
		prevWord = word
	}
	return string(out)
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// GenerateUsernameFromEmail builds "<local>_<6 base36 chars>". The local part
// is sanitized and shortened so the result stays a valid username.
func GenerateUsernameFromEmail(email string) string {
	base := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		base = email[:at]
	}
	base = SanitizeUsername(base)
	if base == "" {
		base = "user"
	}
	if limit := MaxUsernameLength - emailSuffixLength - 1; len(base) > limit {
		base = base[:limit]
	}
	return base + "_" + randomBase36(emailSuffixLength)
}

func randomBase36(n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(strconv.FormatInt(rand.Int63(), 36))
	}
	return b.String()[:n]
}

// GenerateUsernameSuggestions decorates base with a prefix, a numeric
// suffix or both. Duplicates are dropped, so fewer than count may return.
func GenerateUsernameSuggestions(base string, count int) []string {
	base = SanitizeUsername(base)
	if base == "" || count <= 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, count)
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		prefix, suffix := "", ""
		switch rand.Intn(3) {
		case 0:
			prefix = suggestionPrefixes[i%len(suggestionPrefixes)] + "_"
		case 1:
			suffix = "_" + suggestionSuffixes[i%len(suggestionSuffixes)]
		default:
			prefix = suggestionPrefixes[i%len(suggestionPrefixes)] + "_"
			suffix = "_" + suggestionSuffixes[i%len(suggestionSuffixes)]
		}

		core := base
		if room := MaxUsernameLength - len(prefix) - len(suffix); len(core) > room {
			core = core[:room]
		}
		s := prefix + core + suffix
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ProfileURL returns baseURL/u/<escaped username>.
func ProfileURL(username, baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/u/" + url.PathEscape(username)
}
