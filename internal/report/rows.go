package report

import (
	"errors"
	"fmt"
	"math"

	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/optimizer"
)

// ErrCatalogChanged 表示目录在任务完成之后被修改过，按当前目录重新计算的惩罚和保存的结果对不上
var ErrCatalogChanged = errors.New("当前目录与优化任务不一致")

// Row 是报告中的一行：一个商品以及它被分配到的货架
type Row struct {
	ProductID       string  `json:"productID"`
	ProductName     string  `json:"productName"`
	Weight          float64 `json:"weight"`
	Category        string  `json:"category"`
	ShelfID         string  `json:"shelfID"`
	ShelfName       string  `json:"shelfName"`
	ShelfCapacity   float64 `json:"shelfCapacity"`
	ShelfType       string  `json:"shelfType"`
	ShelfSecured    bool    `json:"shelfSecured"`
	ShelfVisibility string  `json:"shelfVisibility"`
}

// Summary 是报告的汇总信息
type Summary struct {
	Penalty     float64
	Breakdown   optimizer.Breakdown
	Generations int32
}

// BuildRows 按商品在目录中的顺序生成报告行
func BuildRows(catalog *domain.Catalog, assignment optimizer.Assignment) ([]Row, error) {
	if len(assignment) != catalog.ProductCount() {
		return nil, fmt.Errorf("%w: 期望 %d，实际 %d", optimizer.ErrAssignmentLength, catalog.ProductCount(), len(assignment))
	}

	rows := make([]Row, len(assignment))
	for i, shelfID := range assignment {
		shelf, ok := catalog.Shelf(shelfID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", optimizer.ErrUnknownShelf, shelfID)
		}
		product := catalog.ProductAt(i)

		rows[i] = Row{
			ProductID:       product.ID,
			ProductName:     product.Name,
			Weight:          product.Weight,
			Category:        product.Category,
			ShelfID:         shelf.ID,
			ShelfName:       shelf.Name,
			ShelfCapacity:   shelf.Capacity,
			ShelfType:       shelf.Type,
			ShelfSecured:    shelf.Secured,
			ShelfVisibility: shelf.Visibility,
		}
	}

	return rows, nil
}

// AssignmentFromPlacements 把数据库中的分配结果还原为染色体
func AssignmentFromPlacements(catalog *domain.Catalog, placements []domain.AllocationPlacement) (optimizer.Assignment, error) {
	a := make(optimizer.Assignment, catalog.ProductCount())
	filled := 0

	for _, p := range placements {
		i, ok := catalog.ProductIndex(p.ProductID)
		if !ok {
			return nil, fmt.Errorf("分配结果中的商品 %s 不在目录中", p.ProductID)
		}
		if a[i] == "" {
			filled++
		}
		a[i] = p.ShelfID
	}

	if filled != len(a) {
		return nil, fmt.Errorf("%w: 期望 %d，实际 %d", optimizer.ErrAssignmentLength, len(a), filled)
	}

	return a, nil
}

// PlacementsFromAssignment 把染色体转换为按商品顺序排列的分配结果
func PlacementsFromAssignment(catalog *domain.Catalog, assignment optimizer.Assignment) []domain.AllocationPlacement {
	placements := make([]domain.AllocationPlacement, len(assignment))
	for i, shelfID := range assignment {
		placements[i] = domain.AllocationPlacement{
			Position:  int32(i),
			ProductID: catalog.ProductAt(i).ID,
			ShelfID:   shelfID,
		}
	}
	return placements
}

// FromRun 根据已完成的优化任务重新生成报告行和汇总
func FromRun(catalog *domain.Catalog, run *domain.AllocationRun) ([]Row, Summary, error) {
	assignment, err := AssignmentFromPlacements(catalog, run.Placements)
	if err != nil {
		return nil, Summary{}, err
	}

	breakdown, err := optimizer.NewEvaluator(catalog, run.AffinityPairs).Breakdown(assignment)
	if err != nil {
		return nil, Summary{}, err
	}
	if run.BestPenalty != nil && !samePenalty(*run.BestPenalty, breakdown.Total()) {
		return nil, Summary{}, fmt.Errorf("%w: 保存的惩罚为 %g，按当前目录计算为 %g", ErrCatalogChanged, *run.BestPenalty, breakdown.Total())
	}

	rows, err := BuildRows(catalog, assignment)
	if err != nil {
		return nil, Summary{}, err
	}

	return rows, Summary{
		Penalty:     breakdown.Total(),
		Breakdown:   breakdown,
		Generations: run.Generations,
	}, nil
}

func samePenalty(stored, recomputed float64) bool {
	if stored == recomputed {
		return true
	}
	return math.Abs(stored-recomputed) <= 1e-9*math.Max(1, math.Abs(stored))
}
