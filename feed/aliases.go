package feed

// Candidate keys per canonical field, in priority order. Feeds disagree on
// casing (RESO PascalCase, camelCase, snake_case) and occasionally on names.
var (
	listingIDAliases = []string{"ListingKey", "listingKey", "listing_key", "ListingId", "ListingID", "listingId", "listing_id", "id"}

	listingKeyNumericAliases = []string{"ListingKeyNumeric", "listingKeyNumeric", "listing_key_numeric"}
	statusAliases            = []string{"StandardStatus", "standardStatus", "MlsStatus", "mlsStatus", "status"}
	propertyTypeAliases      = []string{"PropertyType", "propertyType", "property_type"}
	propertySubTypeAliases   = []string{"PropertySubType", "propertySubType", "property_sub_type"}

	streetNumberAliases    = []string{"StreetNumber", "streetNumber", "street_number"}
	streetNameAliases      = []string{"StreetName", "streetName", "street_name"}
	cityAliases            = []string{"City", "city"}
	stateOrProvinceAliases = []string{"StateOrProvince", "stateOrProvince", "state_or_province", "State", "state", "Province", "province"}
	postalCodeAliases      = []string{"PostalCode", "postalCode", "postal_code", "ZipCode", "zip"}
	countyAliases          = []string{"CountyOrParish", "countyOrParish", "County", "county"}

	listPriceAliases        = []string{"ListPrice", "listPrice", "list_price"}
	closePriceAliases       = []string{"ClosePrice", "closePrice", "close_price"}
	originalListDateAliases = []string{"OriginalEntryTimestamp", "originalEntryTimestamp", "ListingContractDate", "listingContractDate", "original_list_date"}
	closeDateAliases        = []string{"CloseDate", "closeDate", "close_date"}
	daysOnMarketAliases     = []string{"DaysOnMarket", "daysOnMarket", "days_on_market", "CumulativeDaysOnMarket"}

	bedroomsAliases          = []string{"BedroomsTotal", "bedroomsTotal", "Bedrooms", "bedrooms"}
	bathroomsFullAliases     = []string{"BathroomsFull", "bathroomsFull", "bathrooms_full"}
	bathroomsHalfAliases     = []string{"BathroomsHalf", "bathroomsHalf", "bathrooms_half"}
	roomsTotalAliases        = []string{"RoomsTotal", "roomsTotal", "rooms_total"}
	livingAreaAliases        = []string{"LivingArea", "livingArea", "living_area", "BuildingAreaTotal"}
	lotSizeAcresAliases      = []string{"LotSizeAcres", "lotSizeAcres", "lot_size_acres"}
	lotSizeSquareFeetAliases = []string{"LotSizeSquareFeet", "lotSizeSquareFeet", "lot_size_square_feet"}
	yearBuiltAliases         = []string{"YearBuilt", "yearBuilt", "year_built"}
	photosCountAliases       = []string{"PhotosCount", "photosCount", "photos_count"}
	remarksAliases           = []string{"PublicRemarks", "publicRemarks", "public_remarks", "Remarks", "remarks"}

	latitudeAliases  = []string{"Latitude", "latitude", "lat"}
	longitudeAliases = []string{"Longitude", "longitude", "lng", "lon"}

	appliancesAliases = []string{"Appliances", "appliances"}
	heatingAliases    = []string{"Heating", "heating", "HeatingYN"}
	coolingAliases    = []string{"Cooling", "cooling", "CoolingYN"}
	basementAliases   = []string{"Basement", "basement"}

	agentFirstNameAliases = []string{"ListAgentFirstName", "listAgentFirstName", "list_agent_first_name"}
	agentLastNameAliases  = []string{"ListAgentLastName", "listAgentLastName", "list_agent_last_name"}
	agentIDAliases        = []string{"ListAgentMlsId", "listAgentMlsId", "ListAgentKey", "listAgentKey", "list_agent_id"}
	agentEmailAliases     = []string{"ListAgentEmail", "listAgentEmail", "list_agent_email"}
)

// lookup returns the first alias present in raw with a non-null value.
func lookup(raw Record, aliases []string) (any, bool) {
	for _, key := range aliases {
		if v, ok := raw[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
