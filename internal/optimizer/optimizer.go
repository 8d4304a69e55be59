package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/sourcegraph/conc/pool"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

// ProgressFunc 在每一代结束后调用，gen 从 1 开始
type ProgressFunc func(gen int32, bestPenalty float64)

type Optimizer struct {
	parameters Parameters
	catalog    *domain.Catalog
	encoder    *Encoder
	evaluator  *Evaluator
	rng        *rand.Rand
}

// New 校验参数和目录，rng 为 nil 时使用 parameters.Seed 创建随机数生成器
func New(parameters Parameters, catalog *domain.Catalog, rng *rand.Rand) (*Optimizer, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: 目录为空", ErrInvalidParameters)
	}
	if err := parameters.Validate(); err != nil {
		return nil, err
	}
	if catalog.ShelfCount() < 1 {
		return nil, fmt.Errorf("%w: 至少需要 1 个货架", ErrInvalidParameters)
	}
	// 商品少于 2 个时无法进行单点交叉
	if catalog.ProductCount() < 2 {
		return nil, fmt.Errorf("%w: 至少需要 2 个商品（当前为 %d）", ErrInvalidParameters, catalog.ProductCount())
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(parameters.Seed))
	}

	return &Optimizer{
		parameters: parameters,
		catalog:    catalog,
		encoder:    NewEncoder(catalog),
		evaluator:  NewEvaluator(catalog, parameters.AffinityPairs),
		rng:        rng,
	}, nil
}

func (o *Optimizer) Evaluator() *Evaluator {
	return o.evaluator
}

// Optimize 运行固定代数的遗传算法，返回整个过程中出现过的最优解。
// ctx 只在每一代开始前检查一次
func (o *Optimizer) Optimize(ctx context.Context, onGeneration ProgressFunc) (*Result, error) {
	popSize := int(o.parameters.PopulationSize)

	// 生成初始种群
	pop := make([]individual, popSize)
	for i := range pop {
		pop[i].genes = o.encoder.RandomAssignment(o.rng)
	}
	if err := o.score(ctx, pop); err != nil {
		return nil, err
	}

	best := &Result{
		Penalty: math.Inf(1),
		History: make([]float64, 0, o.parameters.Generations),
	}

	for gen := int32(0); gen < o.parameters.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// 繁殖，一次产生两个子代，最后截断到种群大小
		newPop := make([]individual, 0, popSize+1)
		for len(newPop) < popSize {
			p1 := selectByTournament(pop, o.rng)
			p2 := selectByTournament(pop, o.rng)

			child1, child2 := singlePointCrossover(p1.genes, p2.genes, cutPoint(o.encoder.Length(), o.rng))

			o.encoder.mutate(child1, o.parameters.MutationRate, o.rng)
			o.encoder.mutate(child2, o.parameters.MutationRate, o.rng)

			newPop = append(newPop, individual{genes: child1}, individual{genes: child2})
		}
		pop = newPop[:popSize]

		if err := o.score(ctx, pop); err != nil {
			return nil, err
		}

		// 记录历史最优，这里需要拷贝，避免之后的变异修改到最优解
		for _, ind := range pop {
			if best.Assignment == nil || ind.penalty < best.Penalty {
				best.Penalty = ind.penalty
				best.Assignment = ind.genes.Clone()
			}
		}

		best.History = append(best.History, best.Penalty)
		best.Generations = gen + 1

		if onGeneration != nil {
			onGeneration(gen+1, best.Penalty)
		}
	}

	return best, nil
}

// score 计算种群中每个个体的惩罚值，每个 goroutine 只写自己的下标
func (o *Optimizer) score(ctx context.Context, pop []individual) error {
	if o.parameters.Concurrency <= 1 {
		for i := range pop {
			penalty, err := o.evaluator.Evaluate(pop[i].genes)
			if err != nil {
				return err
			}
			pop[i].penalty = penalty
		}
		return nil
	}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(o.parameters.Concurrency)
	for i := range pop {
		p.Go(func(ctx context.Context) error {
			penalty, err := o.evaluator.Evaluate(pop[i].genes)
			if err != nil {
				return err
			}
			pop[i].penalty = penalty
			return nil
		})
	}
	return p.Wait()
}
