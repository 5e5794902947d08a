package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/token_swap_level/internal/domain"
)

func TestRatchetAdvanceAfterBuy(t *testing.T) {
	a := NewLevelAdvancer()
	tok := testToken(domain.AlgoPyramid, []float64{1.0, 1.5, 2.0, 2.5}, domain.Float(1.5), domain.Float(1.0))

	require.NoError(t, a.Advance(tok, domain.ActionBuy))

	// Window moved up one band: the filled level becomes the sell trigger.
	require.NotNil(t, tok.NextSell)
	assert.Equal(t, 1.5, *tok.NextSell)
	require.NotNil(t, tok.NextBuy)
	assert.Equal(t, 2.0, *tok.NextBuy)
}

func TestRatchetAdvanceAfterSell(t *testing.T) {
	a := NewLevelAdvancer()
	tok := testToken(domain.AlgoPyramid, []float64{1.0, 1.5, 2.0, 2.5}, domain.Float(2.0), domain.Float(1.5))

	require.NoError(t, a.Advance(tok, domain.ActionSell))

	require.NotNil(t, tok.NextBuy)
	assert.Equal(t, 1.5, *tok.NextBuy)
	require.NotNil(t, tok.NextSell)
	assert.Equal(t, 1.0, *tok.NextSell)
}

func TestRatchetBuyOffTopOfLadder(t *testing.T) {
	a := NewLevelAdvancer()
	tok := testToken(domain.AlgoPyramid, []float64{1.0, 1.5, 2.0}, domain.Float(2.0), domain.Float(1.5))

	require.NoError(t, a.Advance(tok, domain.ActionBuy))

	assert.Nil(t, tok.NextBuy, "top fill leaves the buy side unset")
	require.NotNil(t, tok.NextSell)
	assert.Equal(t, 2.0, *tok.NextSell)
}

func TestRatchetSellOffBottomOfLadder(t *testing.T) {
	a := NewLevelAdvancer()
	tok := testToken(domain.AlgoPyramid, []float64{1.0, 1.5, 2.0}, domain.Float(1.5), domain.Float(1.0))

	require.NoError(t, a.Advance(tok, domain.ActionSell))

	assert.Nil(t, tok.NextSell, "bottom fill leaves the sell side unset")
	require.NotNil(t, tok.NextBuy)
	assert.Equal(t, 1.0, *tok.NextBuy)
}

func TestRatchetRejectsOffLadderTrigger(t *testing.T) {
	a := NewLevelAdvancer()
	tok := testToken(domain.AlgoPyramid, []float64{1.0, 1.5, 2.0}, domain.Float(1.75), domain.Float(1.0))

	err := a.Advance(tok, domain.ActionBuy)
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
	// No partial mutation on rejection.
	assert.Equal(t, 1.75, *tok.NextBuy)
	assert.Equal(t, 1.0, *tok.NextSell)
}

func TestSimpleLimitDeactivatesAfterFill(t *testing.T) {
	a := NewLevelAdvancer()
	tok := testToken(domain.AlgoSimpleLimit, nil, domain.Float(1.0), domain.Float(2.0))

	require.NoError(t, a.Advance(tok, domain.ActionBuy))

	assert.False(t, tok.IsActive)
	assert.Equal(t, 1.0, *tok.NextBuy, "thresholds survive deactivation")
	assert.Equal(t, 2.0, *tok.NextSell)
}

func TestScalingOutAdvancesSellUpward(t *testing.T) {
	a := NewLevelAdvancer()
	tok := testToken(domain.AlgoScalingOut, []float64{1.0, 1.5, 2.0}, nil, domain.Float(1.5))

	require.NoError(t, a.Advance(tok, domain.ActionSell))
	require.NotNil(t, tok.NextSell)
	assert.Equal(t, 2.0, *tok.NextSell)

	require.NoError(t, a.Advance(tok, domain.ActionSell))
	assert.Nil(t, tok.NextSell, "exhausting the ladder unsets the trigger")
}

// Walk the pyramid ratchet through a full up-then-down excursion and
// check the window tracks the ladder at every step.
func TestRatchetFullExcursion(t *testing.T) {
	a := NewLevelAdvancer()
	tok := testToken(domain.AlgoPyramid, []float64{1.0, 1.5, 2.0, 2.5}, domain.Float(1.5), domain.Float(1.0))

	// Rising market: buys at 1.5, 2.0, 2.5.
	require.NoError(t, a.Advance(tok, domain.ActionBuy))
	assert.Equal(t, 2.0, *tok.NextBuy)
	assert.Equal(t, 1.5, *tok.NextSell)

	require.NoError(t, a.Advance(tok, domain.ActionBuy))
	assert.Equal(t, 2.5, *tok.NextBuy)
	assert.Equal(t, 2.0, *tok.NextSell)

	require.NoError(t, a.Advance(tok, domain.ActionBuy))
	assert.Nil(t, tok.NextBuy)
	assert.Equal(t, 2.5, *tok.NextSell)

	// Falling market: sells at 2.5, 2.0, 1.5, 1.0.
	require.NoError(t, a.Advance(tok, domain.ActionSell))
	assert.Equal(t, 2.5, *tok.NextBuy)
	assert.Equal(t, 2.0, *tok.NextSell)

	require.NoError(t, a.Advance(tok, domain.ActionSell))
	require.NoError(t, a.Advance(tok, domain.ActionSell))
	assert.Equal(t, 1.5, *tok.NextBuy)
	assert.Equal(t, 1.0, *tok.NextSell)

	require.NoError(t, a.Advance(tok, domain.ActionSell))
	assert.Equal(t, 1.0, *tok.NextBuy)
	assert.Nil(t, tok.NextSell)
}

func TestAlertDoesNotAdvance(t *testing.T) {
	a := NewLevelAdvancer()
	tok := testToken(domain.AlgoAlert, nil, domain.Float(1.0), nil)
	require.Error(t, a.Advance(tok, domain.ActionBuy))
}
