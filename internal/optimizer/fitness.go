package optimizer

import (
	"fmt"
	"strings"

	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

// Breakdown 记录每条放置规则的惩罚值和违反次数
type Breakdown struct {
	Capacity    float64 `json:"capacity"`
	HighDemand  float64 `json:"highDemand"`
	Category    float64 `json:"category"`
	Perishable  float64 `json:"perishable"`
	Hazardous   float64 `json:"hazardous"`
	Affinity    float64 `json:"affinity"`
	Bulky       float64 `json:"bulky"`
	Promotional float64 `json:"promotional"`
	Theft       float64 `json:"theft"`

	Violations int `json:"violations"`
}

func (b Breakdown) Total() float64 {
	return b.Capacity + b.HighDemand + b.Category + b.Perishable + b.Hazardous +
		b.Affinity + b.Bulky + b.Promotional + b.Theft
}

// Rules 按固定顺序返回每条规则的名称和惩罚值，用于报告输出
func (b Breakdown) Rules() []RulePenalty {
	return []RulePenalty{
		{Rule: "capacity", Penalty: b.Capacity},
		{Rule: "high_demand", Penalty: b.HighDemand},
		{Rule: "category", Penalty: b.Category},
		{Rule: "perishable", Penalty: b.Perishable},
		{Rule: "hazardous", Penalty: b.Hazardous},
		{Rule: "affinity", Penalty: b.Affinity},
		{Rule: "bulky", Penalty: b.Bulky},
		{Rule: "promotional", Penalty: b.Promotional},
		{Rule: "theft", Penalty: b.Theft},
	}
}

type RulePenalty struct {
	Rule    string  `json:"rule"`
	Penalty float64 `json:"penalty"`
}

type indexPair struct {
	first  int
	second int
}

// Evaluator 计算染色体的惩罚值。它只读取目录，不修改任何状态，可以并发调用
type Evaluator struct {
	catalog *domain.Catalog
	pairs   []indexPair
}

// NewEvaluator 只保留两个商品都存在于目录中的关联商品对
func NewEvaluator(catalog *domain.Catalog, affinityPairs []domain.AffinityPair) *Evaluator {
	e := &Evaluator{
		catalog: catalog,
		pairs:   make([]indexPair, 0, len(affinityPairs)),
	}

	for _, pair := range affinityPairs {
		first, ok1 := catalog.ProductIndex(pair.First)
		second, ok2 := catalog.ProductIndex(pair.Second)
		if ok1 && ok2 {
			e.pairs = append(e.pairs, indexPair{first: first, second: second})
		}
	}

	return e
}

// Evaluate 返回染色体的总惩罚值，越小越好，0 表示满足所有规则
func (e *Evaluator) Evaluate(a Assignment) (float64, error) {
	b, err := e.Breakdown(a)
	if err != nil {
		return 0, err
	}
	return b.Total(), nil
}

func (e *Evaluator) Breakdown(a Assignment) (Breakdown, error) {
	var b Breakdown

	if len(a) != e.catalog.ProductCount() {
		return b, fmt.Errorf("%w: 期望 %d，实际 %d", ErrAssignmentLength, e.catalog.ProductCount(), len(a))
	}

	// 先把货架 ID 转换为下标，同时统计每个货架上的重量
	shelfIdx := make([]int, len(a))
	usage := make([]float64, e.catalog.ShelfCount())
	for i, shelfID := range a {
		idx, ok := e.catalog.ShelfIndex(shelfID)
		if !ok {
			return b, fmt.Errorf("%w: 第 %d 个商品被分配到了 %q", ErrUnknownShelf, i+1, shelfID)
		}
		shelfIdx[i] = idx
		usage[idx] += e.catalog.ProductAt(i).Weight
	}

	// 1. 货架容量，超出部分乘以权重
	for idx, used := range usage {
		capacity := e.catalog.ShelfAt(idx).Capacity
		if used > capacity {
			b.Capacity += (used - capacity) * CapacityOverageWeight
			b.Violations++
		}
	}

	// 3. 同类商品聚集：每个分类第一次出现时所在的货架作为期望货架
	categoryShelf := make(map[string]int)

	for i, idx := range shelfIdx {
		product := e.catalog.ProductAt(i)
		shelf := e.catalog.ShelfAt(idx)

		// 2. 高需求商品需要放在方便拿取或者显眼的货架上
		if product.HighDemand && shelf.Type != domain.ShelfTypeAccessible && shelf.Type != domain.ShelfTypeHighVisibility {
			b.HighDemand += HighDemandPenalty
			b.Violations++
		}

		if product.Category != "" {
			if expected, exists := categoryShelf[product.Category]; !exists {
				categoryShelf[product.Category] = idx
			} else if expected != idx {
				b.Category += CategorySplitPenalty
				b.Violations++
			}
		}

		// 4. 易腐商品必须冷藏
		if product.Perishable && shelf.Type != domain.ShelfTypeRefrigerated {
			b.Perishable += PerishablePenalty
			b.Violations++
		}

		// 5. 危险品只能放在危险品货架
		if product.Hazardous && shelf.Type != domain.ShelfTypeHazardous {
			b.Hazardous += HazardousPenalty
			b.Violations++
		}

		// 7. 大件商品放在下层货架，方便补货
		if product.Bulky && shelf.Type != domain.ShelfTypeLower {
			b.Bulky += BulkyPenalty
			b.Violations++
		}

		// 8. 促销商品需要高可见度
		if product.Promotional && !strings.EqualFold(shelf.Visibility, domain.VisibilityHigh) {
			b.Promotional += PromotionalPenalty
			b.Violations++
		}

		// 9. 贵重商品必须放在有安保的货架
		if product.Expensive && !shelf.Secured {
			b.Theft += TheftPenalty
			b.Violations++
		}
	}

	// 6. 关联商品（交叉销售）需要放在同一个货架上
	for _, pair := range e.pairs {
		if shelfIdx[pair.first] != shelfIdx[pair.second] {
			b.Affinity += AffinityPenalty
			b.Violations++
		}
	}

	return b, nil
}
