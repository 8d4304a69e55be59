package optimizer

import (
	"math/rand"

	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

// Encoder 决定染色体的形状：长度为商品数量，基因取值为货架 ID
type Encoder struct {
	shelfIDs []string
	length   int
}

func NewEncoder(catalog *domain.Catalog) *Encoder {
	return &Encoder{
		shelfIDs: catalog.ShelfIDs(),
		length:   catalog.ProductCount(),
	}
}

func (e *Encoder) Length() int {
	return e.length
}

// randomShelf 从所有货架中均匀地随机选出一个
func (e *Encoder) randomShelf(rng *rand.Rand) string {
	return e.shelfIDs[rng.Intn(len(e.shelfIDs))]
}

// RandomAssignment 随机初始化一个染色体，每个商品独立地随机选择一个货架
func (e *Encoder) RandomAssignment(rng *rand.Rand) Assignment {
	a := make(Assignment, e.length)
	for i := range a {
		a[i] = e.randomShelf(rng)
	}
	return a
}
