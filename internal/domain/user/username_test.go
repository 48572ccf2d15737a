package user

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func existing(names ...string) ExistsFunc {
	return func(ctx context.Context, username string) (bool, error) {
		for _, n := range names {
			if strings.EqualFold(n, username) {
				return true, nil
			}
		}
		return false, nil
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		valid    bool
		message  string
	}{
		{"empty", "", false, "Username must be at least 3 characters"},
		{"too short", "ab", false, "Username must be at least 3 characters"},
		{"too long", strings.Repeat("a", 21), false, "Username must be 3-20 characters, letters, numbers, underscores only"},
		{"bad characters", "john-doe", false, "Username must be 3-20 characters, letters, numbers, underscores only"},
		{"reserved", "Support", false, "This username is reserved"},
		{"contains admin", "admin123", false, "Username cannot contain admin or mod"},
		{"contains mod", "the_Moderator", false, "Username cannot contain admin or mod"},
		{"blocks legitimate words too", "badminton", false, "Username cannot contain admin or mod"},
		{"taken", "alice", false, "Username is already taken"},
		{"available", "habit_hero_7", true, ""},
		{"max length", strings.Repeat("b", 20), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateUsername(context.Background(), tt.username, existing("alice"))
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.message, res.Error)
		})
	}
}

func TestValidateUsernameSkipsLookupOnFormatFailure(t *testing.T) {
	called := false
	exists := func(ctx context.Context, username string) (bool, error) {
		called = true
		return false, nil
	}

	res := ValidateUsername(context.Background(), "admin123", exists)
	assert.False(t, res.Valid)
	assert.False(t, called)
}

func TestValidateUsernameLookupError(t *testing.T) {
	exists := func(ctx context.Context, username string) (bool, error) {
		return false, errors.New("connection refused")
	}

	res := ValidateUsername(context.Background(), "streaker", exists)
	assert.False(t, res.Valid)
	assert.Equal(t, "Unable to check username availability", res.Error)
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "john_doe", SanitizeUsername("John_Doe!"))
	assert.Equal(t, "hello123", SanitizeUsername("  he.llo-123 "))
	assert.Equal(t, strings.Repeat("x", 20), SanitizeUsername(strings.Repeat("X", 30)))
	assert.Equal(t, "", SanitizeUsername("ñ@#"))

	for _, raw := range []string{"Mixed CASE__name", "émile.zola", strings.Repeat("Ab-", 15), ""} {
		once := SanitizeUsername(raw)
		assert.Equal(t, once, SanitizeUsername(once), "raw=%q", raw)
	}
}

func TestIsValidUsernameFormat(t *testing.T) {
	assert.True(t, IsValidUsernameFormat("abc"))
	assert.True(t, IsValidUsernameFormat("admin"))
	assert.False(t, IsValidUsernameFormat("ab"))
	assert.False(t, IsValidUsernameFormat("has space"))
}

func TestFormatUsername(t *testing.T) {
	assert.Equal(t, "John Doe", FormatUsername("john_doe"))
	assert.Equal(t, "Habit Hero 7", FormatUsername("habit_hero_7"))
	assert.Equal(t, "Already Upper", FormatUsername("Already_Upper"))
}

func TestGenerateUsernameFromEmail(t *testing.T) {
	name := GenerateUsernameFromEmail("Jane.Smith@example.com")
	assert.True(t, strings.HasPrefix(name, "janesmith_"), name)
	assert.Len(t, name, len("janesmith_")+6)
	assert.True(t, IsValidUsernameFormat(name), name)

	long := GenerateUsernameFromEmail("averyveryverylongemailaddress@example.com")
	assert.LessOrEqual(t, len(long), MaxUsernameLength)
	assert.True(t, IsValidUsernameFormat(long), long)

	assert.True(t, strings.HasPrefix(GenerateUsernameFromEmail("@example.com"), "user_"))
}

func TestGenerateUsernameSuggestions(t *testing.T) {
	suggestions := GenerateUsernameSuggestions("Runner", 5)
	assert.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), 5)

	seen := map[string]bool{}
	for _, s := range suggestions {
		assert.Contains(t, s, "runner")
		assert.NotEqual(t, "runner", s)
		assert.True(t, IsValidUsernameFormat(s), s)
		assert.False(t, seen[s], "duplicate %s", s)
		seen[s] = true
	}

	assert.Empty(t, GenerateUsernameSuggestions("!!!", 3))
	assert.Empty(t, GenerateUsernameSuggestions("runner", 0))
}

func TestProfileURL(t *testing.T) {
	assert.Equal(t, "https://habittracker.com/u/jane_doe", ProfileURL("jane_doe", "https://habittracker.com"))
	assert.Equal(t, "https://example.org/u/a%20b", ProfileURL("a b", "https://example.org/"))
}
