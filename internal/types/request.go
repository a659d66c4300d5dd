package types

type RequestLoginCode struct {
	Phone string `json:"phone" form:"phone"`
}

type RequestAccessToken struct {
	Label    string `json:"label" form:"label"`
	TTLHours int    `json:"ttl_hours" form:"ttl_hours"`
}
