package domain

import (
	"context"
	"errors"
)

// ErrNoToken is returned when no access token can be obtained: credentials
// unset, or every auth-method/scope combination failed. The manager keeps the
// last upstream error message for operator diagnostics.
var ErrNoToken = errors.New("shr: no access token available")

// Cache is a TTL-aware key-value store (redis in production, fakes in tests).
// ttlSec <= 0 stores without expiry.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	DelPrefix(ctx context.Context, prefix string) error
}

// SettingsStore persists untimed operator-visible state: refresh tokens,
// expiry markers, last OAuth/API errors. GetOption returns "" for unset
// names.
type SettingsStore interface {
	GetOption(ctx context.Context, name string) (string, error)
	SetOption(ctx context.Context, name, value string) error
	DeleteOption(ctx context.Context, name string) error
}

// TokenSource owns the access-token lifecycle for one environment.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	ClearTokens(ctx context.Context) error
	Info(ctx context.Context) TokenInfo
	LastError(ctx context.Context) string
}

// ShopClient issues authenticated calls against the two SHR API families and
// returns the decoded response tree.
type ShopClient interface {
	RateCalendar(ctx context.Context, q RoomQuery) (*Node, error)
	HotelDescriptiveInfo(ctx context.Context, q RoomQuery) (*Node, error)
}
