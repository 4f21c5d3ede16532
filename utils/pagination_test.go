package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPaginationParams(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	t.Run("Defaults", func(t *testing.T) {
		offset, limit := GetPaginationParams(nil, nil)
		assert.Equal(t, 0, offset)
		assert.Equal(t, 20, limit)
	})

	t.Run("Explicit Values", func(t *testing.T) {
		offset, limit := GetPaginationParams(intPtr(40), intPtr(10))
		assert.Equal(t, 40, offset)
		assert.Equal(t, 10, limit)
	})

	t.Run("Limit Capped", func(t *testing.T) {
		_, limit := GetPaginationParams(nil, intPtr(10000))
		assert.Equal(t, 100, limit)
	})

	t.Run("Negative Values Ignored", func(t *testing.T) {
		offset, limit := GetPaginationParams(intPtr(-5), intPtr(-1))
		assert.Equal(t, 0, offset)
		assert.Equal(t, 20, limit)
	})
}
