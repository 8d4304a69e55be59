package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

var ShelfHeaders = []string{"ShelfID", "Name", "Capacity", "Type", "Secured", "Visibility"}

var ProductHeaders = []string{
	"ProductID", "Name", "Weight", "Category",
	"HighDemand", "Perishable", "Bulky", "Hazardous", "Refrigerated", "Promotional", "Expensive",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseBool 只有 "true" 和 "1"（忽略大小写和首尾空白）被认为是真，其余都是假
func ParseBool(val string) bool {
	v := strings.ToLower(strings.TrimSpace(val))
	return v == "true" || v == "1"
}

// table 是按表头名称访问的 CSV 表
type table struct {
	columns map[string]int
	rows    [][]string
}

func readTable(r io.Reader, required []string) (*table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("文件为空，缺少表头")
		}
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	t := &table{columns: make(map[string]int, len(headers))}
	for i, header := range headers {
		t.columns[strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := t.columns[name]; !ok {
			return nil, fmt.Errorf("缺少列 %s", name)
		}
	}

	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("读取第 %d 行失败: %w", len(t.rows)+2, err)
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

func (t *table) get(row []string, name string) string {
	i := t.columns[name]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) number(row []string, name string, line int) (float64, error) {
	raw := t.get(row, name)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("第 %d 行的 %s 不是合法的数字: %q", line, name, raw)
	}
	return v, nil
}

func LoadShelves(r io.Reader) ([]domain.Shelf, error) {
	t, err := readTable(r, ShelfHeaders)
	if err != nil {
		return nil, err
	}

	shelves := make([]domain.Shelf, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2

		capacity, err := t.number(row, "Capacity", line)
		if err != nil {
			return nil, err
		}

		shelf := domain.Shelf{
			ID:         t.get(row, "ShelfID"),
			Name:       t.get(row, "Name"),
			Capacity:   capacity,
			Type:       t.get(row, "Type"),
			Secured:    ParseBool(t.get(row, "Secured")),
			Visibility: t.get(row, "Visibility"),
		}
		if err := validate.Struct(shelf); err != nil {
			return nil, fmt.Errorf("第 %d 行的货架不合法: %w", line, err)
		}

		shelves = append(shelves, shelf)
	}

	return shelves, nil
}

func LoadProducts(r io.Reader) ([]domain.Product, error) {
	t, err := readTable(r, ProductHeaders)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2

		weight, err := t.number(row, "Weight", line)
		if err != nil {
			return nil, err
		}

		product := domain.Product{
			ID:           t.get(row, "ProductID"),
			Name:         t.get(row, "Name"),
			Weight:       weight,
			Category:     t.get(row, "Category"),
			HighDemand:   ParseBool(t.get(row, "HighDemand")),
			Perishable:   ParseBool(t.get(row, "Perishable")),
			Bulky:        ParseBool(t.get(row, "Bulky")),
			Hazardous:    ParseBool(t.get(row, "Hazardous")),
			Refrigerated: ParseBool(t.get(row, "Refrigerated")),
			Promotional:  ParseBool(t.get(row, "Promotional")),
			Expensive:    ParseBool(t.get(row, "Expensive")),
		}
		if err := validate.Struct(product); err != nil {
			return nil, fmt.Errorf("第 %d 行的商品不合法: %w", line, err)
		}

		products = append(products, product)
	}

	return products, nil
}

// Load 从两个 reader 中读取货架和商品并构建目录
func Load(shelvesReader, productsReader io.Reader) (*domain.Catalog, error) {
	shelves, err := LoadShelves(shelvesReader)
	if err != nil {
		return nil, fmt.Errorf("加载货架失败: %w", err)
	}
	products, err := LoadProducts(productsReader)
	if err != nil {
		return nil, fmt.Errorf("加载商品失败: %w", err)
	}
	return domain.NewCatalog(shelves, products)
}

func LoadFiles(shelvesPath, productsPath string) (*domain.Catalog, error) {
	shelvesFile, err := os.Open(shelvesPath)
	if err != nil {
		return nil, err
	}
	defer shelvesFile.Close()

	productsFile, err := os.Open(productsPath)
	if err != nil {
		return nil, err
	}
	defer productsFile.Close()

	return Load(shelvesFile, productsFile)
}
