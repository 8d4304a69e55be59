package domain

type Product struct {
	ID           string  `json:"id" validate:"required"`
	Name         string  `json:"name"`
	Weight       float64 `json:"weight" validate:"gte=0"`
	Category     string  `json:"category"` // 为空表示没有分类，不参与同类聚集的检查
	HighDemand   bool    `json:"highDemand"`
	Perishable   bool    `json:"perishable"`
	Bulky        bool    `json:"bulky"`
	Hazardous    bool    `json:"hazardous"`
	Refrigerated bool    `json:"refrigerated"`
	Promotional  bool    `json:"promotional"`
	Expensive    bool    `json:"expensive"`
}
