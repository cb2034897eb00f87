package shr

// SHR runs separate UAT and production deployments for each API family.
// Credentials are environment-specific; a token minted against UAT is
// rejected by production and vice versa.

func TokenEndpoint(env string) string {
	if env == "production" {
		return "https://id.shrglobal.com/connect/token"
	}
	return "https://iduat.shrglobal.com/connect/token"
}

// ShopBaseURL hosts the Shop API family (rate calendar).
func ShopBaseURL(env string) string {
	if env == "production" {
		return "https://api.shrglobal.com"
	}
	return "https://apiuat.shrglobal.com"
}

// IDSBaseURL hosts the IDS Distribution Pull API (hotel descriptive info).
func IDSBaseURL(env string) string {
	if env == "production" {
		return "https://ids.shrglobal.com"
	}
	return "https://idsuat.shrglobal.com"
}
