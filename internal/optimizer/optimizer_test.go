package optimizer

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

func twoByTwoCatalog(t *testing.T) *domain.Catalog {
	t.Helper()

	c, err := domain.NewCatalog(
		[]domain.Shelf{
			{ID: "S1", Capacity: 10, Type: domain.ShelfTypeAccessible, Secured: true, Visibility: "high"},
			{ID: "S2", Capacity: 10, Type: domain.ShelfTypeHazardous, Secured: false, Visibility: "low"},
		},
		[]domain.Product{
			{ID: "P1", Weight: 5, Hazardous: true},
			{ID: "P2", Weight: 5, Expensive: true},
		},
	)
	require.NoError(t, err)
	return c
}

func TestOptimizeTwoByTwoConverges(t *testing.T) {
	c := twoByTwoCatalog(t)

	params := DefaultParameters()
	params.PopulationSize = 10
	params.Generations = 30

	opt, err := New(params, c, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	res, err := opt.Optimize(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Penalty)
	assert.Equal(t, Assignment{"S2", "S1"}, res.Assignment)
	assert.Equal(t, params.Generations, res.Generations)
	assert.Len(t, res.History, int(params.Generations))

	// 其它三种分配都至少有 10 的惩罚
	e := opt.Evaluator()
	for _, a := range []Assignment{{"S1", "S1"}, {"S2", "S2"}, {"S1", "S2"}} {
		penalty, err := e.Evaluate(a)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, penalty, 10.0)
	}
}

func TestOptimizeHistoryNonIncreasing(t *testing.T) {
	c := ruleFixture(t)

	params := DefaultParameters()
	params.PopulationSize = 21 // 奇数种群，最后一对子代会被截断
	params.Generations = 60

	var calls []float64
	opt, err := New(params, c, rand.New(rand.NewSource(2024)))
	require.NoError(t, err)

	res, err := opt.Optimize(context.Background(), func(gen int32, best float64) {
		assert.Equal(t, int32(len(calls)+1), gen)
		calls = append(calls, best)
	})
	require.NoError(t, err)

	require.Len(t, res.History, int(params.Generations))
	assert.Equal(t, res.History, calls)
	for i := 1; i < len(res.History); i++ {
		assert.LessOrEqual(t, res.History[i], res.History[i-1])
	}
	assert.Equal(t, res.History[len(res.History)-1], res.Penalty)

	penalty, err := opt.Evaluator().Evaluate(res.Assignment)
	require.NoError(t, err)
	assert.Equal(t, res.Penalty, penalty)
}

func TestOptimizeDeterministicAcrossConcurrency(t *testing.T) {
	c := ruleFixture(t)

	run := func(concurrency int) *Result {
		params := DefaultParameters()
		params.PopulationSize = 20
		params.Generations = 40
		params.Concurrency = concurrency

		opt, err := New(params, c, rand.New(rand.NewSource(99)))
		require.NoError(t, err)
		res, err := opt.Optimize(context.Background(), nil)
		require.NoError(t, err)
		return res
	}

	serial := run(1)
	parallel := run(4)
	assert.Equal(t, serial.Assignment, parallel.Assignment)
	assert.Equal(t, serial.History, parallel.History)
}

func TestOptimizeSeedFromParameters(t *testing.T) {
	c := ruleFixture(t)

	params := DefaultParameters()
	params.PopulationSize = 8
	params.Generations = 10
	params.Seed = 17

	opt1, err := New(params, c, nil)
	require.NoError(t, err)
	opt2, err := New(params, c, nil)
	require.NoError(t, err)

	res1, err := opt1.Optimize(context.Background(), nil)
	require.NoError(t, err)
	res2, err := opt2.Optimize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, res1.Assignment, res2.Assignment)
}

func TestOptimizeKeepsAssignmentForInfinitePenalty(t *testing.T) {
	// 两个商品的重量相加会溢出成 +Inf，所有方案的惩罚都是 +Inf
	c, err := domain.NewCatalog(
		[]domain.Shelf{{ID: "S1", Capacity: 0}},
		[]domain.Product{{ID: "P1", Weight: math.MaxFloat64}, {ID: "P2", Weight: math.MaxFloat64}},
	)
	require.NoError(t, err)

	params := DefaultParameters()
	params.PopulationSize = 4
	params.Generations = 3

	opt, err := New(params, c, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	res, err := opt.Optimize(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, math.IsInf(res.Penalty, 1))
	assert.Equal(t, Assignment{"S1", "S1"}, res.Assignment)
	assert.Len(t, res.History, int(params.Generations))
}

func TestValidateAffinityPairs(t *testing.T) {
	assert.NoError(t, ValidateAffinityPairs(nil))
	assert.NoError(t, ValidateAffinityPairs([]domain.AffinityPair{{First: "P1", Second: "P2"}}))
	assert.ErrorIs(t, ValidateAffinityPairs([]domain.AffinityPair{{First: "P1", Second: "P1"}}), ErrInvalidParameters)
	assert.ErrorIs(t, ValidateAffinityPairs([]domain.AffinityPair{{Second: "P2"}}), ErrInvalidParameters)
}

func TestOptimizeCanceled(t *testing.T) {
	c := ruleFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	opt, err := New(DefaultParameters(), c, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = opt.Optimize(ctx, func(gen int32, _ float64) {
		if gen == 3 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsDegenerateInput(t *testing.T) {
	single, err := domain.NewCatalog(
		[]domain.Shelf{{ID: "S1", Capacity: 1}},
		[]domain.Product{{ID: "P1", Weight: 1}},
	)
	require.NoError(t, err)

	_, err = New(DefaultParameters(), single, nil)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = New(DefaultParameters(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	c := ruleFixture(t)
	tests := []struct {
		name   string
		modify func(p *Parameters)
	}{
		{"zero generations", func(p *Parameters) { p.Generations = 0 }},
		{"zero population", func(p *Parameters) { p.PopulationSize = 0 }},
		{"negative mutation rate", func(p *Parameters) { p.MutationRate = -0.1 }},
		{"mutation rate above one", func(p *Parameters) { p.MutationRate = 1.5 }},
		{"empty affinity id", func(p *Parameters) { p.AffinityPairs = []domain.AffinityPair{{First: "P1"}} }},
		{"self affinity", func(p *Parameters) { p.AffinityPairs = []domain.AffinityPair{{First: "P1", Second: "P1"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParameters()
			tt.modify(&params)
			_, err := New(params, c, nil)
			assert.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}
