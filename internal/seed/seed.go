package seed

import (
	"log/slog"
	"math/rand"

	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/utils"
)

type CatalogWriter interface {
	ReplaceCatalog(catalog *domain.Catalog) error
}

// FromFiles 从货架和商品的 CSV 文件导入真实数据
func FromFiles(w CatalogWriter, shelvesPath, productsPath string) (*domain.Catalog, error) {
	c, err := catalog.LoadFiles(shelvesPath, productsPath)
	if err != nil {
		return nil, err
	}

	if err := w.ReplaceCatalog(c); err != nil {
		return nil, err
	}

	slog.Info("导入目录成功", "shelves", c.ShelfCount(), "products", c.ProductCount())
	return c, nil
}

// Random 生成随机目录并写入数据库
func Random(w CatalogWriter, rng *rand.Rand, shelfCount, productCount int) (*domain.Catalog, error) {
	c, err := utils.GenerateRandomCatalog(rng, shelfCount, productCount)
	if err != nil {
		return nil, err
	}

	if err := w.ReplaceCatalog(c); err != nil {
		return nil, err
	}

	slog.Info("插入随机目录成功", "shelves", c.ShelfCount(), "products", c.ProductCount())
	return c, nil
}
