package feed

import (
	"strings"
	"time"

	"feedsync/models"
)

// Record is one raw upstream listing as decoded from the feed.
type Record = map[string]any

// Normalize maps a raw feed record onto a canonical Listing. It returns
// false when no identifier alias resolves; such records are skipped by
// the caller, not treated as errors. OwnerID and UpdatedAt are left for
// the caller to set.
func Normalize(raw Record) (models.Listing, bool) {
	id, ok := resolveListingID(raw)
	if !ok {
		return models.Listing{}, false
	}

	l := models.Listing{
		ListingID: id,

		ListingKeyNumeric: int64Field(raw, listingKeyNumericAliases),
		Status:            stringField(raw, statusAliases),
		PropertyType:      stringField(raw, propertyTypeAliases),
		PropertySubType:   stringField(raw, propertySubTypeAliases),

		StreetNumber:    stringField(raw, streetNumberAliases),
		StreetName:      stringField(raw, streetNameAliases),
		City:            stringField(raw, cityAliases),
		StateOrProvince: stringField(raw, stateOrProvinceAliases),
		PostalCode:      stringField(raw, postalCodeAliases),
		County:          stringField(raw, countyAliases),

		ListPrice:        floatField(raw, listPriceAliases),
		ClosePrice:       floatField(raw, closePriceAliases),
		OriginalListDate: timeField(raw, originalListDateAliases),
		CloseDate:        timeField(raw, closeDateAliases),
		DaysOnMarket:     intField(raw, daysOnMarketAliases),

		Bedrooms:          intField(raw, bedroomsAliases),
		BathroomsFull:     intField(raw, bathroomsFullAliases),
		BathroomsHalf:     intField(raw, bathroomsHalfAliases),
		RoomsTotal:        intField(raw, roomsTotalAliases),
		LivingArea:        floatField(raw, livingAreaAliases),
		LotSizeAcres:      floatField(raw, lotSizeAcresAliases),
		LotSizeSquareFeet: floatField(raw, lotSizeSquareFeetAliases),
		YearBuilt:         intField(raw, yearBuiltAliases),
		PhotosCount:       intField(raw, photosCountAliases),

		Latitude:  floatField(raw, latitudeAliases),
		Longitude: floatField(raw, longitudeAliases),

		Features: models.Features{
			Appliances: opaqueField(raw, appliancesAliases),
			Heating:    opaqueField(raw, heatingAliases),
			Cooling:    opaqueField(raw, coolingAliases),
			Basement:   opaqueField(raw, basementAliases),
		},
		AgentSummary: models.AgentSummary{
			FirstName: stringField(raw, agentFirstNameAliases),
			LastName:  stringField(raw, agentLastNameAliases),
			AgentID:   stringField(raw, agentIDAliases),
			Email:     stringField(raw, agentEmailAliases),
		},
	}

	if remarks := stringField(raw, remarksAliases); remarks != nil {
		cleaned := cleanRemarks(*remarks)
		l.Remarks = &cleaned
	}

	return l, true
}

// resolveListingID differs from the other string fields in that a blank
// value does not count: the next alias is tried instead.
func resolveListingID(raw Record) (string, bool) {
	for _, key := range listingIDAliases {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		s, ok := toString(v)
		if !ok {
			continue
		}
		if id := strings.TrimSpace(*s); id != "" {
			return id, true
		}
	}
	return "", false
}

func stringField(raw Record, aliases []string) *string {
	v, ok := lookup(raw, aliases)
	if !ok {
		return nil
	}
	s, _ := toString(v)
	return s
}

func floatField(raw Record, aliases []string) *float64 {
	v, ok := lookup(raw, aliases)
	if !ok {
		return nil
	}
	f, _ := toFloat(v)
	return f
}

func intField(raw Record, aliases []string) *int {
	v, ok := lookup(raw, aliases)
	if !ok {
		return nil
	}
	i, _ := toInt(v)
	return i
}

func int64Field(raw Record, aliases []string) *int64 {
	v, ok := lookup(raw, aliases)
	if !ok {
		return nil
	}
	i, _ := toInt64(v)
	return i
}

func timeField(raw Record, aliases []string) *time.Time {
	v, ok := lookup(raw, aliases)
	if !ok {
		return nil
	}
	t, _ := toTime(v)
	return t
}

func opaqueField(raw Record, aliases []string) any {
	v, _ := lookup(raw, aliases)
	return v
}
