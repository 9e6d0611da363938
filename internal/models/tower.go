package models

// Radio technologies, in display order
var RadioCategories = []string{"UMTS", "LTE", "GSM", "CDMA"}

// RadioIndex returns the position of radio in RadioCategories, or -1.
func RadioIndex(radio string) int {
	for i, r := range RadioCategories {
		if r == radio {
			return i
		}
	}
	return -1
}

// Tower represents one published cell tower record
type Tower struct {
	ID          int64   `json:"id" db:"id"`
	Radio       string  `json:"radio" db:"radio"`
	X3857       float64 `json:"x3857" db:"x_3857"` // Web Mercator meters
	Y3857       float64 `json:"y3857" db:"y_3857"`
	Lon         float64 `json:"lon" db:"lon"`
	Lat         float64 `json:"lat" db:"lat"`
	Log10Range  float64 `json:"log10Range" db:"log10_range"`
	RangeBin    int     `json:"rangeBin" db:"range_bin"`
	Created     int64   `json:"created" db:"created"` // Unix timestamp in seconds
	CreatedBin  int     `json:"createdBin" db:"created_bin"`
	Description *string `json:"description,omitempty" db:"description"`
	Status      *string `json:"status,omitempty" db:"status"`
	MCC         int64   `json:"mcc" db:"mcc"`
	Net         int64   `json:"net" db:"net"`
}

// TowerPoint is the subset of a tower the rasterizer needs
type TowerPoint struct {
	X     float64
	Y     float64
	Radio int // index into RadioCategories
}

// DatasetInfo describes one entry of the published namespace
type DatasetInfo struct {
	Name        string `json:"name"`
	PublishedAt int64  `json:"publishedAt"` // Unix timestamp in seconds
	Size        int    `json:"size"`        // payload bytes
}
