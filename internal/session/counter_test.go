package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikeCounterDisplay(t *testing.T) {
	tests := []struct {
		name    string
		base    int
		likes   int
		unlikes int
		want    int
	}{
		{"no toggles", 5, 0, 0, 5},
		{"like", 5, 1, 0, 6},
		{"like then unlike", 5, 1, 1, 5},
		{"floor at zero", 0, 0, 3, 0},
		{"unlike below base", 2, 1, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLikeCounter(tt.base)
			for i := 0; i < tt.likes; i++ {
				c.Apply(true)
			}
			for i := 0; i < tt.unlikes; i++ {
				c.Apply(false)
			}
			assert.Equal(t, tt.want, c.Display())
		})
	}
}

func TestLikeCounterReset(t *testing.T) {
	c := NewLikeCounter(10)
	c.Apply(true)
	c.Apply(true)
	assert.Equal(t, 12, c.Display())

	c.Reset(11)
	assert.Equal(t, 11, c.Display())
}
