package optimizer

import "math/rand"

// 个体：染色体和它的惩罚值
type individual struct {
	genes   Assignment
	penalty float64
}

// 二元锦标赛选择：有放回地随机抽出两个个体，惩罚值严格更小的胜出，相等时保留第二个
func selectByTournament(pop []individual, rng *rand.Rand) individual {
	a := pop[rng.Intn(len(pop))]
	b := pop[rng.Intn(len(pop))]
	if a.penalty < b.penalty {
		return a
	}
	return b
}

// cutPoint 在 [1, length-2] 中均匀选出交叉点，长度为 2 时只能在 1 处切开
func cutPoint(length int, rng *rand.Rand) int {
	if length <= 2 {
		return 1
	}
	return 1 + rng.Intn(length-2)
}

// 单点交叉，总是执行。子代是新的切片，不会修改父代
func singlePointCrossover(p1, p2 Assignment, point int) (Assignment, Assignment) {
	length := len(p1)
	child1 := make(Assignment, length)
	child2 := make(Assignment, length)

	copy(child1[:point], p1[:point])
	copy(child1[point:], p2[point:])
	copy(child2[:point], p2[:point])
	copy(child2[point:], p1[point:])

	return child1, child2
}

// 变异：每个基因都以 rate 的概率被替换为随机的货架
func (e *Encoder) mutate(a Assignment, rate float64, rng *rand.Rand) {
	for i := range a {
		if rng.Float64() < rate {
			a[i] = e.randomShelf(rng)
		}
	}
}
