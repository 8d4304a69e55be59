package domain

// 常用的货架类型，类型集合是开放的，这里只列出放置规则会用到的
const (
	ShelfTypeAccessible     = "accessible"
	ShelfTypeHighVisibility = "high_visibility"
	ShelfTypeRefrigerated   = "refrigerated"
	ShelfTypeHazardous      = "hazardous"
	ShelfTypeLower          = "lower"
)

const VisibilityHigh = "high"

type Shelf struct {
	ID         string  `json:"id" validate:"required"`
	Name       string  `json:"name"`
	Capacity   float64 `json:"capacity" validate:"gte=0"`
	Type       string  `json:"type"`
	Secured    bool    `json:"secured"`
	Visibility string  `json:"visibility"`
}
