package models

import "time"

// Listing is the canonical record for one property drawn from an upstream
// feed. Optional fields are pointers: nil means the feed did not provide a
// usable value, which is distinct from a zero value.
type Listing struct {
	ListingID string  `json:"listing_id" db:"listing_id"`
	OwnerID   *string `json:"owner_id" db:"owner_id"`

	ListingKeyNumeric *int64  `json:"listing_key_numeric" db:"listing_key_numeric"`
	Status            *string `json:"status" db:"status"`
	PropertyType      *string `json:"property_type" db:"property_type"`
	PropertySubType   *string `json:"property_sub_type" db:"property_sub_type"`

	// Address
	StreetNumber    *string `json:"street_number" db:"street_number"`
	StreetName      *string `json:"street_name" db:"street_name"`
	City            *string `json:"city" db:"city"`
	StateOrProvince *string `json:"state_or_province" db:"state_or_province"`
	PostalCode      *string `json:"postal_code" db:"postal_code"`
	County          *string `json:"county" db:"county"`

	// Pricing
	ListPrice        *float64   `json:"list_price" db:"list_price"`
	ClosePrice       *float64   `json:"close_price" db:"close_price"`
	OriginalListDate *time.Time `json:"original_list_date" db:"original_list_date"`
	CloseDate        *time.Time `json:"close_date" db:"close_date"`
	DaysOnMarket     *int       `json:"days_on_market" db:"days_on_market"`

	// Physical attributes
	Bedrooms          *int     `json:"bedrooms" db:"bedrooms"`
	BathroomsFull     *int     `json:"bathrooms_full" db:"bathrooms_full"`
	BathroomsHalf     *int     `json:"bathrooms_half" db:"bathrooms_half"`
	RoomsTotal        *int     `json:"rooms_total" db:"rooms_total"`
	LivingArea        *float64 `json:"living_area" db:"living_area"`
	LotSizeAcres      *float64 `json:"lot_size_acres" db:"lot_size_acres"`
	LotSizeSquareFeet *float64 `json:"lot_size_square_feet" db:"lot_size_square_feet"`
	YearBuilt         *int     `json:"year_built" db:"year_built"`
	PhotosCount       *int     `json:"photos_count" db:"photos_count"`
	Remarks           *string  `json:"remarks" db:"remarks"`

	Latitude  *float64 `json:"latitude" db:"latitude"`
	Longitude *float64 `json:"longitude" db:"longitude"`

	Features     Features     `json:"features" db:"features"`
	AgentSummary AgentSummary `json:"agent_summary" db:"agent_summary"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Features holds feed values that are kept as-is rather than typed. A nil
// member serializes as null.
type Features struct {
	Appliances any `json:"appliances"`
	Heating    any `json:"heating"`
	Cooling    any `json:"cooling"`
	Basement   any `json:"basement"`
}

// AgentSummary is the listing agent as reported by the feed. It is a
// snapshot and is never joined against the identity store.
type AgentSummary struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	AgentID   *string `json:"agent_id"`
	Email     *string `json:"email"`
}

// AgentIdentity is an internal user record attached to catalog rows by owner id.
type AgentIdentity struct {
	ID        string  `json:"id" db:"id"`
	FirstName *string `json:"first_name" db:"first_name"`
	LastName  *string `json:"last_name" db:"last_name"`
	Email     *string `json:"email" db:"email"`
	Contact   *string `json:"contact" db:"contact"`
	ImageURL  *string `json:"image_url" db:"image_url"`
}
