package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyShelves     = errors.New("货架列表为空")
	ErrEmptyProducts    = errors.New("商品列表为空")
	ErrDuplicateShelf   = errors.New("货架 ID 重复")
	ErrDuplicateProduct = errors.New("商品 ID 重复")
	ErrNegativeCapacity = errors.New("货架容量不能为负数")
	ErrNegativeWeight   = errors.New("商品重量不能为负数")
	ErrNonFiniteNumber  = errors.New("货架容量和商品重量必须是有限的数字")
)

// Catalog 是一次优化所用的货架和商品集合，构建之后只读，可以在多个 goroutine 之间共享
type Catalog struct {
	shelves      []Shelf
	products     []Product
	shelfIndex   map[string]int
	productIndex map[string]int
}

// NewCatalog 按传入顺序构建目录，商品的顺序就是染色体中基因的顺序
func NewCatalog(shelves []Shelf, products []Product) (*Catalog, error) {
	if len(shelves) == 0 {
		return nil, ErrEmptyShelves
	}
	if len(products) == 0 {
		return nil, ErrEmptyProducts
	}

	c := &Catalog{
		shelves:      make([]Shelf, len(shelves)),
		products:     make([]Product, len(products)),
		shelfIndex:   make(map[string]int, len(shelves)),
		productIndex: make(map[string]int, len(products)),
	}
	copy(c.shelves, shelves)
	copy(c.products, products)

	for i, shelf := range c.shelves {
		if _, exists := c.shelfIndex[shelf.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateShelf, shelf.ID)
		}
		if math.IsInf(shelf.Capacity, 0) || math.IsNaN(shelf.Capacity) {
			return nil, fmt.Errorf("%w: %s", ErrNonFiniteNumber, shelf.ID)
		}
		if shelf.Capacity < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativeCapacity, shelf.ID)
		}
		c.shelfIndex[shelf.ID] = i
	}

	for i, product := range c.products {
		if _, exists := c.productIndex[product.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProduct, product.ID)
		}
		if math.IsInf(product.Weight, 0) || math.IsNaN(product.Weight) {
			return nil, fmt.Errorf("%w: %s", ErrNonFiniteNumber, product.ID)
		}
		if product.Weight < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativeWeight, product.ID)
		}
		c.productIndex[product.ID] = i
	}

	return c, nil
}

// Shelves 返回货架的副本
func (c *Catalog) Shelves() []Shelf {
	return append([]Shelf(nil), c.shelves...)
}

// Products 返回商品的副本
func (c *Catalog) Products() []Product {
	return append([]Product(nil), c.products...)
}

func (c *Catalog) ShelfCount() int {
	return len(c.shelves)
}

func (c *Catalog) ProductCount() int {
	return len(c.products)
}

// ShelfAt 按下标返回货架，调用方需要保证下标合法
func (c *Catalog) ShelfAt(i int) *Shelf {
	return &c.shelves[i]
}

// ProductAt 按下标返回商品，调用方需要保证下标合法
func (c *Catalog) ProductAt(i int) *Product {
	return &c.products[i]
}

func (c *Catalog) Shelf(id string) (*Shelf, bool) {
	i, ok := c.shelfIndex[id]
	if !ok {
		return nil, false
	}
	return &c.shelves[i], true
}

func (c *Catalog) ShelfIndex(id string) (int, bool) {
	i, ok := c.shelfIndex[id]
	return i, ok
}

func (c *Catalog) ProductIndex(id string) (int, bool) {
	i, ok := c.productIndex[id]
	return i, ok
}

// ShelfIDs 返回所有货架 ID，顺序和货架的加载顺序一致
func (c *Catalog) ShelfIDs() []string {
	ids := make([]string, len(c.shelves))
	for i, shelf := range c.shelves {
		ids[i] = shelf.ID
	}
	return ids
}
