package model

// Client holds the registered service address clock events are verified against.
type Client struct {
	ID        int32  `gorm:"primaryKey;column:id"`
	FirstName string `gorm:"column:first_name;type:varchar(100)"`
	Surname   string `gorm:"column:surname;type:varchar(100)"`
	Address   string `gorm:"column:address;type:varchar(255)"`

	Latitude  float64 `gorm:"column:latitude;type:decimal(10,7)"`
	Longitude float64 `gorm:"column:longitude;type:decimal(10,7)"`

	// GeofenceRadiusM overrides the platform default when positive.
	GeofenceRadiusM float64 `gorm:"column:geofence_radius_m;type:decimal(8,2)"`
}

func (Client) TableName() string {
	return "clients"
}

type Caregiver struct {
	ID        int32  `gorm:"primaryKey;column:id"`
	Code      string `gorm:"column:code;type:varchar(20)"`
	FirstName string `gorm:"column:first_name;type:varchar(100)"`
	Surname   string `gorm:"column:surname;type:varchar(100)"`
	Email     string `gorm:"column:email;type:varchar(255)"`
}

func (Caregiver) TableName() string {
	return "caregivers"
}
