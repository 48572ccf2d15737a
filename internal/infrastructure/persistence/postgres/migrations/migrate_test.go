package migrations

import (
	"fmt"
	"testing"

	"github.com/habitquest/backend/internal/domain/user"
	"github.com/stretchr/testify/assert"
)

func TestModelsStartWithUsers(t *testing.T) {
	models := Models()
	assert.IsType(t, &user.User{}, models[0])

	seen := map[string]bool{}
	for _, m := range models {
		name := fmt.Sprintf("%T", m)
		assert.False(t, seen[name], "duplicate model %s", name)
		seen[name] = true
	}
	assert.Len(t, models, 7)
}
