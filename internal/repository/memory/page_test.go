package memory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, page(items, 0, 2))
	assert.Equal(t, []int{5}, page(items, 4, 2))
	assert.Equal(t, []int{}, page(items, 5, 2))
	assert.Equal(t, items, page(items, 0, 0))
	assert.Equal(t, []int{1, 2}, page(items, -100, 2))
	assert.Equal(t, []int{3, 4, 5}, page(items, 2, math.MaxInt))
}
