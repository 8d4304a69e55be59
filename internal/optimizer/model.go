package optimizer

import (
	"errors"
	"fmt"

	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

var (
	ErrInvalidParameters = errors.New("遗传算法参数不合法")
	ErrUnknownShelf      = errors.New("染色体中存在目录里没有的货架")
	ErrAssignmentLength  = errors.New("染色体长度和商品数量不一致")
)

// Assignment: 染色体，第 i 个基因是第 i 个商品（按目录顺序）所在货架的 ID
type Assignment []string

func (a Assignment) Clone() Assignment {
	return append(Assignment(nil), a...)
}

// 惩罚权重是固定常量
const (
	CapacityOverageWeight = 10.0
	HighDemandPenalty     = 5.0
	CategorySplitPenalty  = 1.0
	PerishablePenalty     = 10.0
	HazardousPenalty      = 10.0
	AffinityPenalty       = 5.0
	BulkyPenalty          = 5.0
	PromotionalPenalty    = 5.0
	TheftPenalty          = 10.0
)

// 遗传算法参数
type Parameters struct {
	PopulationSize int32                 // 种群大小，决定每一代的搜索宽度
	Generations    int32                 // 迭代次数，决定搜索深度和运行时间
	MutationRate   float64               // 每个基因的变异概率，越大探索越强
	AffinityPairs  []domain.AffinityPair // 需要放在同一个货架上的商品对
	Seed           int64                 // 随机种子，0 表示由调用方自行决定
	Concurrency    int                   // 计算适应度的并发数，小于等于 1 时串行计算
}

func DefaultParameters() Parameters {
	return Parameters{
		PopulationSize: 50,
		Generations:    250,
		MutationRate:   0.2,
		AffinityPairs:  []domain.AffinityPair{{First: "P5", Second: "P6"}},
		Concurrency:    1,
	}
}

// Validate 只检查参数本身，和目录相关的检查在 New 中进行
func (p Parameters) Validate() error {
	if p.PopulationSize < 1 {
		return fmt.Errorf("%w: 种群大小必须大于 0（当前为 %d）", ErrInvalidParameters, p.PopulationSize)
	}
	if p.Generations < 1 {
		return fmt.Errorf("%w: 迭代次数必须大于 0（当前为 %d）", ErrInvalidParameters, p.Generations)
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		return fmt.Errorf("%w: 变异概率必须在 [0, 1] 之间（当前为 %f）", ErrInvalidParameters, p.MutationRate)
	}
	return ValidateAffinityPairs(p.AffinityPairs)
}

// ValidateAffinityPairs 检查关联商品对，评估单个方案时也使用同样的规则
func ValidateAffinityPairs(pairs []domain.AffinityPair) error {
	for i, pair := range pairs {
		if pair.First == "" || pair.Second == "" {
			return fmt.Errorf("%w: 第 %d 个关联商品对存在空的商品 ID", ErrInvalidParameters, i+1)
		}
		if pair.First == pair.Second {
			return fmt.Errorf("%w: 第 %d 个关联商品对的两个商品相同", ErrInvalidParameters, i+1)
		}
	}
	return nil
}

// 优化结果
type Result struct {
	Assignment  Assignment
	Penalty     float64
	History     []float64 // 每一代结束后的历史最优惩罚值
	Generations int32
}
