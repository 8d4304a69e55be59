package optimizer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

// 每种规则都有一个能满足它的货架
func ruleFixture(t *testing.T) *domain.Catalog {
	t.Helper()

	shelves := []domain.Shelf{
		{ID: "ACC", Name: "入口货架", Capacity: 100, Type: domain.ShelfTypeAccessible, Secured: true, Visibility: "High"},
		{ID: "FRIDGE", Name: "冷柜", Capacity: 100, Type: domain.ShelfTypeRefrigerated, Secured: false, Visibility: "low"},
		{ID: "HAZ", Name: "危险品柜", Capacity: 100, Type: domain.ShelfTypeHazardous, Secured: false, Visibility: "low"},
		{ID: "LOW", Name: "底层货架", Capacity: 100, Type: domain.ShelfTypeLower, Secured: false, Visibility: "low"},
	}
	products := []domain.Product{
		{ID: "P1", Name: "牛奶", Weight: 5, Category: "dairy", Perishable: true, Refrigerated: true},
		{ID: "P2", Name: "酸奶", Weight: 5, Category: "dairy", Perishable: true},
		{ID: "P3", Name: "漂白剂", Weight: 5, Hazardous: true},
		{ID: "P4", Name: "大米", Weight: 20, Bulky: true},
		{ID: "P5", Name: "意面", Weight: 2, Category: "pasta", HighDemand: true, Promotional: true},
		{ID: "P6", Name: "意面酱", Weight: 2, Category: "pasta", Expensive: true},
	}

	c, err := domain.NewCatalog(shelves, products)
	require.NoError(t, err)
	return c
}

func TestEvaluateZeroForFeasibleAssignment(t *testing.T) {
	c := ruleFixture(t)
	e := NewEvaluator(c, DefaultParameters().AffinityPairs)

	penalty, err := e.Evaluate(Assignment{"FRIDGE", "FRIDGE", "HAZ", "LOW", "ACC", "ACC"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, penalty)
}

func TestEvaluateRules(t *testing.T) {
	c := ruleFixture(t)
	e := NewEvaluator(c, DefaultParameters().AffinityPairs)

	tests := []struct {
		name       string
		assignment Assignment
		check      func(t *testing.T, b Breakdown)
	}{
		{
			name:       "perishable outside fridge also splits category",
			assignment: Assignment{"FRIDGE", "ACC", "HAZ", "LOW", "ACC", "ACC"},
			check: func(t *testing.T, b Breakdown) {
				assert.Equal(t, PerishablePenalty, b.Perishable)
				assert.Equal(t, CategorySplitPenalty, b.Category)
				assert.Equal(t, PerishablePenalty+CategorySplitPenalty, b.Total())
			},
		},
		{
			name:       "hazardous outside hazardous shelf",
			assignment: Assignment{"FRIDGE", "FRIDGE", "LOW", "LOW", "ACC", "ACC"},
			check: func(t *testing.T, b Breakdown) {
				assert.Equal(t, HazardousPenalty, b.Hazardous)
				assert.Equal(t, HazardousPenalty, b.Total())
			},
		},
		{
			name:       "bulky on upper shelf",
			assignment: Assignment{"FRIDGE", "FRIDGE", "HAZ", "ACC", "ACC", "ACC"},
			check: func(t *testing.T, b Breakdown) {
				assert.Equal(t, BulkyPenalty, b.Bulky)
				assert.Equal(t, BulkyPenalty, b.Total())
			},
		},
		{
			name:       "affinity pair split",
			assignment: Assignment{"FRIDGE", "FRIDGE", "HAZ", "LOW", "ACC", "LOW"},
			check: func(t *testing.T, b Breakdown) {
				assert.Equal(t, AffinityPenalty, b.Affinity)
				assert.Equal(t, CategorySplitPenalty, b.Category)
				assert.Equal(t, TheftPenalty, b.Theft)
				assert.Equal(t, AffinityPenalty+CategorySplitPenalty+TheftPenalty, b.Total())
			},
		},
		{
			name:       "high demand and promotional on hidden shelf",
			assignment: Assignment{"FRIDGE", "FRIDGE", "HAZ", "LOW", "LOW", "LOW"},
			check: func(t *testing.T, b Breakdown) {
				assert.Equal(t, HighDemandPenalty, b.HighDemand)
				assert.Equal(t, PromotionalPenalty, b.Promotional)
				assert.Equal(t, TheftPenalty, b.Theft)
				assert.Equal(t, 0.0, b.Category)
				assert.Equal(t, 0.0, b.Affinity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := e.Breakdown(tt.assignment)
			require.NoError(t, err)
			tt.check(t, b)

			penalty, err := e.Evaluate(tt.assignment)
			require.NoError(t, err)
			assert.Equal(t, b.Total(), penalty)
		})
	}
}

func TestEvaluateCapacityOverage(t *testing.T) {
	c, err := domain.NewCatalog(
		[]domain.Shelf{{ID: "S1", Capacity: 10, Type: domain.ShelfTypeAccessible, Secured: true, Visibility: "high"}},
		[]domain.Product{{ID: "A", Weight: 7}, {ID: "B", Weight: 6.5}},
	)
	require.NoError(t, err)

	b, err := NewEvaluator(c, nil).Breakdown(Assignment{"S1", "S1"})
	require.NoError(t, err)
	assert.InDelta(t, 35.0, b.Capacity, 1e-9)
	assert.Equal(t, 1, b.Violations)
}

func TestEvaluateCategoryFirstSeenWins(t *testing.T) {
	c, err := domain.NewCatalog(
		[]domain.Shelf{{ID: "S1", Capacity: 100}, {ID: "S2", Capacity: 100}},
		[]domain.Product{
			{ID: "A", Category: "snack"},
			{ID: "B", Category: "snack"},
			{ID: "C", Category: "snack"},
			{ID: "D"},
			{ID: "E"},
		},
	)
	require.NoError(t, err)
	e := NewEvaluator(c, nil)

	// 第一个零食在 S1，所以后面两个在 S2 的都会被惩罚，即使 S2 上的更多
	b, err := e.Breakdown(Assignment{"S1", "S2", "S2", "S1", "S2"})
	require.NoError(t, err)
	assert.Equal(t, 2*CategorySplitPenalty, b.Category)

	b, err = e.Breakdown(Assignment{"S2", "S1", "S2", "S1", "S2"})
	require.NoError(t, err)
	assert.Equal(t, CategorySplitPenalty, b.Category)
}

func TestEvaluateAffinityPairsMustExist(t *testing.T) {
	c, err := domain.NewCatalog(
		[]domain.Shelf{{ID: "S1", Capacity: 100}, {ID: "S2", Capacity: 100}},
		[]domain.Product{{ID: "P5"}, {ID: "P7"}, {ID: "P8"}},
	)
	require.NoError(t, err)

	pairs := []domain.AffinityPair{{First: "P5", Second: "P6"}, {First: "P7", Second: "P8"}}
	b, err := NewEvaluator(c, pairs).Breakdown(Assignment{"S1", "S1", "S2"})
	require.NoError(t, err)
	assert.Equal(t, AffinityPenalty, b.Affinity)
}

func TestEvaluateUnknownShelf(t *testing.T) {
	c := ruleFixture(t)
	e := NewEvaluator(c, nil)

	_, err := e.Evaluate(Assignment{"FRIDGE", "FRIDGE", "HAZ", "LOW", "ACC", "NOPE"})
	assert.ErrorIs(t, err, ErrUnknownShelf)

	_, err = e.Evaluate(Assignment{"FRIDGE"})
	assert.ErrorIs(t, err, ErrAssignmentLength)
}

func TestEvaluateNonNegativeAndDeterministic(t *testing.T) {
	c := ruleFixture(t)
	e := NewEvaluator(c, DefaultParameters().AffinityPairs)
	enc := NewEncoder(c)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		a := enc.RandomAssignment(rng)
		before := a.Clone()

		first, err := e.Evaluate(a)
		require.NoError(t, err)
		second, err := e.Evaluate(a)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, first, 0.0)
		assert.Equal(t, first, second)
		assert.Equal(t, before, a, "Evaluate 不应修改染色体")
	}
}
