package models

// Service is immutable reference data owned by the catalog.
type Service struct {
	ID              int64   `yaml:"id" json:"id"`
	Name            string  `yaml:"name" json:"name"`
	DurationMinutes int     `yaml:"duration_minutes" json:"duration_minutes"`
	Price           float64 `yaml:"price" json:"price"`
	Category        string  `yaml:"category" json:"category"`
	StoreID         int64   `yaml:"store_id" json:"store_id"`
}

// Employee is immutable reference data owned by the catalog.
// WorkStart/WorkEnd are optional HH:MM bounds; when empty the default
// business-day grid applies.
type Employee struct {
	ID                        int64  `yaml:"id" json:"id"`
	FullName                  string `yaml:"full_name" json:"full_name"`
	Role                      string `yaml:"role" json:"role"`
	StoreID                   int64  `yaml:"store_id" json:"store_id"`
	AcceptsBookingsWithinDays int    `yaml:"accepts_bookings_within_days" json:"accepts_bookings_within_days"`
	WorkStart                 string `yaml:"work_start,omitempty" json:"work_start,omitempty"`
	WorkEnd                   string `yaml:"work_end,omitempty" json:"work_end,omitempty"`
}

// Catalog groups the reference data loaded at startup.
type Catalog struct {
	Services  []Service  `yaml:"services"`
	Employees []Employee `yaml:"employees"`
}
