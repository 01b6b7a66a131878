package domain

type Tour struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Duration      int      `json:"duration"`
	Price         float64  `json:"price"`
	Images        []string `json:"images"`
	Type          string   `json:"type"`
	City          string   `json:"city"`
	Languages     []string `json:"languages"`
	Rating        *float64 `json:"rating"`
	Accommodation *string  `json:"accommodation"`
	Highlights    []string `json:"highlights"`
	Included      []string `json:"included"`
	NotIncluded   []string `json:"notIncluded"`
}
