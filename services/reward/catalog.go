package reward

type Type string

var (
	TypeServiceCredit   Type = "service_credit"
	TypeProductDiscount Type = "product_discount"
	TypeFreeService     Type = "free_service"
)

// Template describes a redeemable reward. The catalog is static; a row is
// copied into a RewardRedemption at redemption time so later catalog edits
// never rewrite history.
type Template struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Type         Type    `json:"type"`
	PointsCost   int64   `json:"points_cost"`
	Value        float64 `json:"value"`
	ValidityDays int     `json:"validity_days"`
}

var catalog = []Template{
	{
		ID:           "service-credit-10",
		Name:         "$10 Service Credit",
		Description:  "Take $10 off any service",
		Type:         TypeServiceCredit,
		PointsCost:   100,
		Value:        10,
		ValidityDays: 30,
	},
	{
		ID:           "product-discount-25",
		Name:         "25% Off Products",
		Description:  "25% off a single retail product purchase",
		Type:         TypeProductDiscount,
		PointsCost:   250,
		Value:        25,
		ValidityDays: 60,
	},
	{
		ID:           "free-touch-up",
		Name:         "Free Touch-Up Session",
		Description:  "One complimentary touch-up session",
		Type:         TypeFreeService,
		PointsCost:   1000,
		Value:        150,
		ValidityDays: 90,
	},
}

// Catalog returns a copy of the reward templates so callers cannot mutate
// the shared slice.
func Catalog() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

// TemplateByID returns the template and whether it exists.
func TemplateByID(id string) (Template, bool) {
	for _, tpl := range catalog {
		if tpl.ID == id {
			return tpl, true
		}
	}
	return Template{}, false
}
