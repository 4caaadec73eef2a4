package models

// WeatherClass is the coarse weather classification used for route planning
type WeatherClass string

const (
	WeatherNormal   WeatherClass = "NORMAL"
	WeatherMonsoon  WeatherClass = "MONSOON"
	WeatherSnow     WeatherClass = "SNOW"
	WeatherHeatwave WeatherClass = "HEATWAVE"
)

// Severe reports whether the class slows transport down
func (w WeatherClass) Severe() bool {
	switch w {
	case WeatherMonsoon, WeatherSnow, WeatherHeatwave:
		return true
	}
	return false
}

// DistanceSource records which provider produced a route
type DistanceSource string

const (
	DistanceSourcePrimary  DistanceSource = "PRIMARY"
	DistanceSourceFallback DistanceSource = "FALLBACK"
)

// Coordinate is a WGS84 point
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Route is a resolved distance and travel time between two coordinates
type Route struct {
	DistanceKm float64        `json:"distance_km"`
	TimeMins   int            `json:"time_mins"`
	Source     DistanceSource `json:"source"`
}

// InventoryJoin is a raw inventory row joined with its facility and item
type InventoryJoin struct {
	FacilityID       string
	FacilityName     string
	ItemID           string
	ItemName         string
	Quantity         int
	SafetyStockLevel int
	ConsumptionRate  float64
}

// DonorCandidate is a facility able to give away stock without breaching its safety floor
type DonorCandidate struct {
	FacilityID       string `json:"facility_id"`
	Name             string `json:"name"`
	AvailableSurplus int    `json:"available_surplus"`
}

// StockAlert is a forecast deficit at a facility
type StockAlert struct {
	RequestorPHC string `json:"requestor_phc"`
	PHCName      string `json:"phc_name"`
	Medicine     string `json:"medicine"`
	Quantity     int    `json:"quantity"`
}

// LogisticsPlan is the routing plan for one donor to requestor transfer
type LogisticsPlan struct {
	DistanceKm     float64        `json:"distance_km"`
	EstTimeMins    int            `json:"est_time_mins"`
	Weather        WeatherClass   `json:"weather"`
	Constraints    []string       `json:"constraints"`
	DistanceSource DistanceSource `json:"distance_source,omitempty"`
}

// PlannedTransfer pairs a donor with the plan computed for it
type PlannedTransfer struct {
	Donor DonorCandidate `json:"donor"`
	Plan  LogisticsPlan  `json:"plan"`
}
