package pricing

import (
	"strings"

	"pbs/src/types"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const unknownRegion = "ZZ"

// ClassifyGuest decides whether a guest is local to the property's country.
// A declared residence country always wins over the phone number, which is
// only a best-effort signal.
func ClassifyGuest(propertyCountry, accountCountry, phone string) (types.GuestTier, error) {
	if strings.TrimSpace(accountCountry) != "" {
		return tierFor(sameCountry(propertyCountry, accountCountry)), nil
	}

	if strings.TrimSpace(phone) == "" {
		return types.GUEST_INTERNATIONAL, nil
	}

	region, err := PhoneRegion(phone)
	if err != nil {
		return "", err
	}
	if CountryName(region) == "" {
		return types.GUEST_INTERNATIONAL, nil
	}

	return tierFor(sameCountry(propertyCountry, region)), nil
}

// PhoneRegion validates a phone number in international format and returns
// its ISO 3166 region code. The code may be empty or "ZZ" for non-geographic
// numbers.
func PhoneRegion(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !strings.HasPrefix(phone, "+") {
		return "", invalidPhone(phone, "phone number must be in international format starting with +")
	}
	num, err := phonenumbers.Parse(phone, "")
	if err != nil {
		return "", invalidPhone(phone, "phone number could not be parsed")
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", invalidPhone(phone, "phone number is not valid")
	}
	return phonenumbers.GetRegionCodeForNumber(num), nil
}

// CountryName returns the English name of a region code, or "" when the code
// does not name a country.
func CountryName(region string) string {
	if region == "" || strings.EqualFold(region, unknownRegion) {
		return ""
	}
	r, err := language.ParseRegion(region)
	if err != nil || !r.IsCountry() {
		return ""
	}
	return display.English.Regions().Name(r)
}

func sameCountry(a, b string) bool {
	na, nb := normalizeCountry(a), normalizeCountry(b)
	return na != "" && na == nb
}

// normalizeCountry accepts either a country name or a region code.
func normalizeCountry(country string) string {
	country = strings.TrimSpace(country)
	if len(country) == 2 || len(country) == 3 {
		if name := CountryName(country); name != "" {
			return strings.ToLower(name)
		}
	}
	return strings.ToLower(country)
}

func tierFor(local bool) types.GuestTier {
	if local {
		return types.GUEST_LOCAL
	}
	return types.GUEST_INTERNATIONAL
}

func invalidPhone(phone, message string) error {
	return types.NewValidationError("invalid_phone_format", message).
		WithDetail("phone", phone).
		WithSuggestion("Use the international format, e.g. +254712345678")
}
