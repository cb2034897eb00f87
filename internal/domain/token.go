package domain

// Environment selects the SHR deployment the credentials belong to.
type Environment string

const (
	EnvUAT        Environment = "uat"
	EnvProduction Environment = "production"
)

// Credentials identify one OAuth client. Immutable per request; sourced from
// configuration.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// TokenInfo is the diagnostic view of the persisted token state, exposed on
// the admin endpoint.
type TokenInfo struct {
	HasAccessToken        bool  `json:"has_access_token"`
	AccessTokenExpires    int64 `json:"access_token_expires"`
	AccessTokenExpiresIn  int64 `json:"access_token_expires_in"`
	HasRefreshToken       bool  `json:"has_refresh_token"`
	RefreshTokenExpires   int64 `json:"refresh_token_expires"`
	RefreshTokenExpiresIn int64 `json:"refresh_token_expires_in"`
}
