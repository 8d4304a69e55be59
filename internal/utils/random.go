package utils

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type productTemplate struct {
	name         string
	category     string
	perishable   bool
	refrigerated bool
	hazardous    bool
	bulky        bool
	expensive    bool
}

var productTemplates = []productTemplate{
	{name: "牛奶", category: "乳制品", perishable: true, refrigerated: true},
	{name: "酸奶", category: "乳制品", perishable: true, refrigerated: true},
	{name: "奶酪", category: "乳制品", perishable: true, refrigerated: true},
	{name: "冰淇淋", category: "冷冻食品", perishable: true, refrigerated: true},
	{name: "面包", category: "烘焙", perishable: true},
	{name: "蛋糕", category: "烘焙", perishable: true},
	{name: "洗衣液", category: "清洁用品", bulky: true},
	{name: "漂白剂", category: "清洁用品", hazardous: true},
	{name: "杀虫剂", category: "园艺", hazardous: true},
	{name: "打火机", category: "日用品", hazardous: true},
	{name: "电池", category: "电子产品", hazardous: true},
	{name: "耳机", category: "电子产品", expensive: true},
	{name: "手表", category: "配饰", expensive: true},
	{name: "香水", category: "化妆品", expensive: true},
	{name: "大米", category: "粮油", bulky: true},
	{name: "食用油", category: "粮油", bulky: true},
	{name: "矿泉水", category: "饮料", bulky: true},
	{name: "可乐", category: "饮料"},
	{name: "薯片", category: "零食"},
	{name: "巧克力", category: "零食"},
}

var shelfTypes = []string{
	domain.ShelfTypeAccessible,
	domain.ShelfTypeHighVisibility,
	domain.ShelfTypeRefrigerated,
	domain.ShelfTypeHazardous,
	domain.ShelfTypeLower,
}

var shelfZones = []string{"A", "B", "C", "D"}

// ProductIDFromName 用商品名拼音的首字母加序号作为商品编号，例如 牛奶 -> NN001
func ProductIDFromName(name string, seq int) string {
	initials := ""
	for _, syllable := range pinyin.LazyConvert(name, nil) {
		if syllable != "" {
			initials += strings.ToUpper(syllable[:1])
		}
	}
	if initials == "" {
		initials = "P"
	}
	return fmt.Sprintf("%s%03d", initials, seq)
}

func round(v float64) float64 {
	return math.Round(v*10) / 10
}

func GenerateRandomShelf(rng *rand.Rand, seq int) domain.Shelf {
	shelfType := shelfTypes[rng.Intn(len(shelfTypes))]
	zone := shelfZones[rng.Intn(len(shelfZones))]

	visibility := "low"
	if shelfType == domain.ShelfTypeHighVisibility || rng.Intn(3) == 0 {
		visibility = domain.VisibilityHigh
	}

	return domain.Shelf{
		ID:         fmt.Sprintf("S%d", seq),
		Name:       fmt.Sprintf("%s区%d号货架", zone, seq),
		Capacity:   round(20 + rng.Float64()*80),
		Type:       shelfType,
		Secured:    rng.Intn(2) == 0,
		Visibility: visibility,
	}
}

func GenerateRandomProduct(rng *rand.Rand, seq int) domain.Product {
	t := productTemplates[rng.Intn(len(productTemplates))]

	weight := 1 + rng.Float64()*9
	if t.bulky {
		weight = 10 + rng.Float64()*20
	}

	return domain.Product{
		ID:           ProductIDFromName(t.name, seq),
		Name:         t.name,
		Weight:       round(weight),
		Category:     t.category,
		HighDemand:   rng.Intn(3) == 0,
		Perishable:   t.perishable,
		Bulky:        t.bulky,
		Hazardous:    t.hazardous,
		Refrigerated: t.refrigerated,
		Promotional:  rng.Intn(4) == 0,
		Expensive:    t.expensive,
	}
}

// GenerateRandomCatalog 生成用于演示和压测的随机目录
func GenerateRandomCatalog(rng *rand.Rand, shelfCount, productCount int) (*domain.Catalog, error) {
	shelves := make([]domain.Shelf, shelfCount)
	for i := range shelves {
		shelves[i] = GenerateRandomShelf(rng, i+1)
	}

	products := make([]domain.Product, productCount)
	for i := range products {
		products[i] = GenerateRandomProduct(rng, i+1)
	}

	return domain.NewCatalog(shelves, products)
}

// HashPassword 生成管理员密码的 bcrypt 哈希，用于 ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
