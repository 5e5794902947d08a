package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLadderIndexOf(t *testing.T) {
	l := Ladder{1.0, 1.5, 2.0, 2.5}

	i, ok := l.IndexOf(1.5)
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = l.IndexOf(1.75)
	assert.False(t, ok)

	_, ok = Ladder(nil).IndexOf(1.0)
	assert.False(t, ok)
}

func TestLadderStepUp(t *testing.T) {
	l := Ladder{1.0, 1.5, 2.0}

	v, ok := l.StepUp(0)
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	// Top of the ladder has no next band.
	_, ok = l.StepUp(2)
	assert.False(t, ok)

	_, ok = l.StepUp(-1)
	assert.False(t, ok)
}

func TestLadderStepDown(t *testing.T) {
	l := Ladder{1.0, 1.5, 2.0}

	v, ok := l.StepDown(2)
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	// Bottom of the ladder has no lower band.
	_, ok = l.StepDown(0)
	assert.False(t, ok)

	_, ok = l.StepDown(3)
	assert.False(t, ok)
}
