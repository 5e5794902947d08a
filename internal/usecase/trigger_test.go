package usecase

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/token_swap_level/internal/domain"
)

func TestPyramidPolicy(t *testing.T) {
	e := NewTriggerEvaluator()
	tok := testToken(domain.AlgoPyramid, []float64{1.0, 1.5, 2.0}, domain.Float(1.5), domain.Float(1.0))

	cases := []struct {
		price  float64
		action domain.Action
	}{
		{1.2, domain.ActionHold},
		{1.5, domain.ActionBuy}, // trigger boundary is inclusive
		{1.8, domain.ActionBuy},
		{1.0, domain.ActionSell},
		{0.7, domain.ActionSell},
	}
	for _, c := range cases {
		d, err := e.Evaluate(tok, c.price)
		require.NoError(t, err)
		assert.Equal(t, c.action, d.Action, "price %g", c.price)
		assert.Empty(t, d.Reason)
	}
}

func TestPyramidSimultaneousMatchIsConfigSignal(t *testing.T) {
	e := NewTriggerEvaluator()
	// Inverted pair: nextSell above nextBuy makes both conditions match.
	tok := testToken(domain.AlgoPyramid, []float64{1.0, 1.5, 2.0}, domain.Float(1.0), domain.Float(2.0))

	d, err := e.Evaluate(tok, 1.5)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, d.Action)
	assert.NotEmpty(t, d.Reason, "simultaneous match must surface as a configuration signal")
}

func TestScalingStopNeverSells(t *testing.T) {
	e := NewTriggerEvaluator()
	tok := testToken(domain.AlgoScalingStop, []float64{1.0, 1.5, 2.0}, domain.Float(1.5), domain.Float(1.0))

	d, err := e.Evaluate(tok, 0.5) // far below the sell trigger
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, d.Action)

	d, err = e.Evaluate(tok, 1.6)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, d.Action)
}

func TestSimpleLimitPolicy(t *testing.T) {
	e := NewTriggerEvaluator()
	tok := testToken(domain.AlgoSimpleLimit, nil, domain.Float(1.0), domain.Float(2.0))

	d, err := e.Evaluate(tok, 0.9) // at or below nextBuy buys
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, d.Action)

	d, err = e.Evaluate(tok, 2.1) // at or above nextSell sells
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSell, d.Action)

	d, err = e.Evaluate(tok, 1.5)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, d.Action)
}

func TestSimpleLimitZeroThresholdDisablesSide(t *testing.T) {
	e := NewTriggerEvaluator()
	tok := testToken(domain.AlgoSimpleLimit, nil, domain.Float(0), domain.Float(0))

	// Zero thresholds must not trade at any price.
	for _, price := range []float64{0.0001, 1, 1000} {
		d, err := e.Evaluate(tok, price)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionHold, d.Action, "price %g", price)
	}
}

func TestScalingOutPolicy(t *testing.T) {
	e := NewTriggerEvaluator()
	tok := testToken(domain.AlgoScalingOut, []float64{1.0, 1.5, 2.0}, nil, domain.Float(1.5))

	d, err := e.Evaluate(tok, 1.4)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, d.Action)

	d, err = e.Evaluate(tok, 1.5)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSell, d.Action)
}

func TestAlertPolicy(t *testing.T) {
	e := NewTriggerEvaluator()
	tok := testToken(domain.AlgoAlert, nil, domain.Float(2.0), nil)

	d, err := e.Evaluate(tok, 1.96) // within 5% of the trigger
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, d.Action)
	assert.True(t, d.Alert)

	d, err = e.Evaluate(tok, 1.0)
	require.NoError(t, err)
	assert.False(t, d.Alert)
}

func TestEvaluateRejectsMissingTriggers(t *testing.T) {
	e := NewTriggerEvaluator()

	cases := []*domain.Token{
		testToken(domain.AlgoPyramid, []float64{1, 2}, nil, domain.Float(1)),
		testToken(domain.AlgoPyramid, []float64{1, 2}, domain.Float(2), nil),
		testToken(domain.AlgoScalingStop, []float64{1, 2}, nil, nil),
		testToken(domain.AlgoSimpleLimit, nil, domain.Float(1), nil),
		testToken(domain.AlgoScalingOut, []float64{1, 2}, nil, nil),
	}
	for _, tok := range cases {
		_, err := e.Evaluate(tok, 1.0)
		require.Error(t, err)
		assert.True(t, domain.IsConfigError(err))
	}

	// Alert tolerates missing sides: it just never fires for them.
	d, err := e.Evaluate(testToken(domain.AlgoAlert, nil, nil, nil), 1.0)
	require.NoError(t, err)
	assert.False(t, d.Alert)
}

// Every well-configured token must get exactly one verdict at any price.
func TestEvaluateIsTotal(t *testing.T) {
	e := NewTriggerEvaluator()
	rng := rand.New(rand.NewSource(42))

	tokens := []*domain.Token{
		testToken(domain.AlgoPyramid, []float64{1.0, 1.5, 2.0}, domain.Float(1.5), domain.Float(1.0)),
		testToken(domain.AlgoScalingStop, []float64{1.0, 1.5, 2.0}, domain.Float(1.5), domain.Float(1.0)),
		testToken(domain.AlgoSimpleLimit, nil, domain.Float(1.0), domain.Float(2.0)),
		testToken(domain.AlgoScalingOut, []float64{1.0, 1.5, 2.0}, nil, domain.Float(1.5)),
		testToken(domain.AlgoAlert, nil, domain.Float(1.5), domain.Float(1.0)),
	}
	for i := 0; i < 1000; i++ {
		price := rng.Float64() * 3
		for _, tok := range tokens {
			d, err := e.Evaluate(tok, price)
			require.NoError(t, err)
			switch d.Action {
			case domain.ActionHold, domain.ActionBuy, domain.ActionSell:
			default:
				t.Fatalf("unexpected action %v for %s at %g", d.Action, tok.AlgoType, price)
			}
		}
	}
}

func TestEvaluateUnknownAlgo(t *testing.T) {
	e := NewTriggerEvaluator()
	tok := testToken("momentum", nil, nil, nil)
	_, err := e.Evaluate(tok, 1.0)
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}
