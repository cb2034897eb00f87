package shr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akshaysorathiya9581/book-your-stay/internal/adapters/observability"
	"github.com/akshaysorathiya9581/book-your-stay/internal/domain"
)

// Persisted token state. The access token itself is a TTL cache entry; the
// expiry marker, refresh token, and last error are untimed options so they
// survive cache flushes and stay inspectable by operators.
const (
	cacheKeyAccessToken   = "shr:access_token"
	optTokenExpiry        = "shr_token_expiry"
	optRefreshToken       = "shr_refresh_token"
	optRefreshTokenExpiry = "shr_refresh_token_expiry"
	optLastError          = "shr_last_oauth_error"
)

// expiryBuffer keeps us from handing out a token that dies mid-request.
const expiryBuffer = 300 * time.Second

// defaultRefreshLifetime applies when the token endpoint omits
// refresh_token_expires_in.
const defaultRefreshLifetime = 30 * 24 * time.Hour

// scopeVariations are tried in order during full re-authentication. SHR
// documents different scope requirements per deployment, so the manager
// self-discovers a working combination instead of failing fast.
var scopeVariations = []string{
	"wsapi.guestrequests.read",
	"wsapi.guestrequests.read wsapi.shop.ratecalendar",
	"wsapi.shop.ratecalendar",
	"", // some deployments reject any scope value
}

// refreshScope is always sent on refresh, matching the grant issued by the
// combined-scope deployments.
const refreshScope = "wsapi.guestrequests.read wsapi.shop.ratecalendar"

type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	Error                 string `json:"error"`
	ErrorDescription      string `json:"error_description"`
	Message               string `json:"message"`
}

// TokenManager owns the access-token lifecycle for one environment:
// validity check, refresh-token exchange, and full client-credentials
// re-authentication with multi-strategy fallback.
//
// Shared state is written without locking. Concurrent refreshes race and the
// last writer wins; any valid token works, and the expiry buffer makes
// overlap rare.
type TokenManager struct {
	env      string
	endpoint string
	creds    domain.Credentials
	cache    domain.Cache
	settings domain.SettingsStore
	hc       *http.Client
}

// NewTokenManager builds a manager for the given environment. An empty
// endpoint resolves to the environment's token endpoint; tests pass their
// own.
func NewTokenManager(env, endpoint string, creds domain.Credentials, cache domain.Cache, settings domain.SettingsStore) *TokenManager {
	if endpoint == "" {
		endpoint = TokenEndpoint(env)
	}
	return &TokenManager{
		env:      env,
		endpoint: endpoint,
		creds:    creds,
		cache:    cache,
		settings: settings,
		hc:       &http.Client{Timeout: 30 * time.Second},
	}
}

// AccessToken returns a currently valid access token, refreshing or
// re-authenticating transparently. A token whose expiry clears the buffer is
// returned with no network I/O.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	var cached string
	if ok, _ := m.cache.Get(ctx, cacheKeyAccessToken, &cached); ok && cached != "" {
		if m.optionInt(ctx, optTokenExpiry) > time.Now().Add(expiryBuffer).Unix() {
			return cached, nil
		}
	}

	rt, _ := m.settings.GetOption(ctx, optRefreshToken)
	if rt != "" && m.optionInt(ctx, optRefreshTokenExpiry) > time.Now().Unix() {
		if tok, err := m.refreshAccessToken(ctx, rt); err == nil {
			return tok, nil
		} else {
			log.Warn().Err(err).Msg("shr: token refresh failed, falling back to re-authentication")
		}
	}

	return m.fetchNewToken(ctx)
}

// fetchNewToken performs full re-authentication: every auth-method × scope
// combination is tried until one returns 200 with an access_token. The last
// failure is persisted for operator diagnostics.
func (m *TokenManager) fetchNewToken(ctx context.Context) (string, error) {
	if !m.creds.Configured() {
		log.Error().Msg("shr: client credentials not configured")
		return "", domain.ErrNoToken
	}

	clientID := sanitizeCredential(m.creds.ClientID)
	clientSecret := sanitizeCredential(m.creds.ClientSecret)
	if clientID == "" || clientSecret == "" {
		msg := "Client ID or Secret is empty after cleaning. Please check for hidden characters."
		_ = m.settings.SetOption(ctx, optLastError, msg)
		log.Error().Msg("shr: " + msg)
		return "", domain.ErrNoToken
	}

	var lastError string
	for _, useBasic := range []bool{true, false} {
		method := "body"
		if useBasic {
			method = "basic"
		}
		for _, scope := range scopeVariations {
			form := url.Values{}
			form.Set("grant_type", "client_credentials")
			if scope != "" {
				form.Set("scope", scope)
			}
			if !useBasic {
				form.Set("client_id", clientID)
				form.Set("client_secret", clientSecret)
			}

			status, body, err := m.post(ctx, form, useBasic, clientID, clientSecret)
			if err != nil {
				observability.ObserveTokenTrial(method, false)
				lastError = err.Error()
				continue
			}
			if status == http.StatusOK {
				var data tokenResponse
				if json.Unmarshal(body, &data) == nil && data.AccessToken != "" {
					observability.ObserveTokenTrial(method, true)
					log.Info().Str("method", method).Str("scope", scope).Msg("shr: token obtained")
					m.storeToken(ctx, data)
					return data.AccessToken, nil
				}
			}
			observability.ObserveTokenTrial(method, false)
			lastError = formatHTTPError(status, body)
			log.Debug().Str("method", method).Str("scope", scope).Str("error", lastError).
				Msg("shr: token attempt failed")
		}
	}

	if strings.Contains(lastError, "invalid_client") {
		lastError += " Troubleshooting: 1) Verify credentials match the " + strings.ToUpper(m.env) +
			" environment, 2) Check for extra spaces or hidden characters, 3) Ensure credentials are active in the SHR system, 4) Contact SHR support to verify your API access."
	}
	_ = m.settings.SetOption(ctx, optLastError, lastError)
	log.Error().Str("error", lastError).Msg("shr: all token attempts failed")
	return "", domain.ErrNoToken
}

// refreshAccessToken exchanges the refresh token, retrying once with a
// Basic-auth header on 400/401 before giving up.
func (m *TokenManager) refreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	clientID := strings.TrimSpace(m.creds.ClientID)
	clientSecret := strings.TrimSpace(m.creds.ClientSecret)
	refreshToken = strings.TrimSpace(refreshToken)
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return "", domain.ErrNoToken
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("scope", refreshScope)
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	status, body, err := m.post(ctx, form, false, clientID, clientSecret)
	if err != nil {
		observability.ObserveTokenTrial("refresh", false)
		_ = m.settings.SetOption(ctx, optLastError, err.Error())
		return "", err
	}

	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		retry := url.Values{}
		retry.Set("grant_type", "refresh_token")
		retry.Set("refresh_token", refreshToken)
		retry.Set("scope", refreshScope)
		status, body, err = m.post(ctx, retry, true, clientID, clientSecret)
		if err != nil {
			observability.ObserveTokenTrial("refresh", false)
			_ = m.settings.SetOption(ctx, optLastError, err.Error())
			return "", err
		}
	}

	if status != http.StatusOK {
		observability.ObserveTokenTrial("refresh", false)
		msg := formatHTTPError(status, body)
		_ = m.settings.SetOption(ctx, optLastError, msg)
		return "", fmt.Errorf("shr: refresh failed: %s", msg)
	}

	var data tokenResponse
	if err := json.Unmarshal(body, &data); err != nil || data.AccessToken == "" {
		observability.ObserveTokenTrial("refresh", false)
		msg := "No access token in response"
		if data.Error != "" {
			msg = data.Error
			if data.ErrorDescription != "" {
				msg += ": " + data.ErrorDescription
			}
		}
		_ = m.settings.SetOption(ctx, optLastError, msg)
		return "", fmt.Errorf("shr: refresh failed: %s", msg)
	}

	observability.ObserveTokenTrial("refresh", true)
	m.storeToken(ctx, data)
	return data.AccessToken, nil
}

// post issues one token-endpoint request and returns status and body.
func (m *TokenManager) post(ctx context.Context, form url.Values, useBasic bool, clientID, clientSecret string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if useBasic {
		req.SetBasicAuth(clientID, clientSecret)
	}

	start := time.Now()
	resp, err := m.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	observability.ObserveExternal("oauth", "/connect/token", resp.StatusCode, time.Since(start))
	return resp.StatusCode, body, nil
}

// storeToken persists a successful exchange: access token into the TTL cache
// with a one-minute safety margin, the authoritative expiry and refresh
// state as untimed options, and any previous error cleared.
func (m *TokenManager) storeToken(ctx context.Context, data tokenResponse) {
	expiresIn := data.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	if data.RefreshToken != "" {
		refreshExpiresIn := data.RefreshTokenExpiresIn
		if refreshExpiresIn <= 0 {
			refreshExpiresIn = int64(defaultRefreshLifetime / time.Second)
		}
		_ = m.settings.SetOption(ctx, optRefreshToken, data.RefreshToken)
		_ = m.settings.SetOption(ctx, optRefreshTokenExpiry,
			strconv.FormatInt(time.Now().Unix()+refreshExpiresIn, 10))
	}

	_ = m.cache.Set(ctx, cacheKeyAccessToken, data.AccessToken, int(expiresIn-60))
	_ = m.settings.SetOption(ctx, optTokenExpiry,
		strconv.FormatInt(time.Now().Unix()+expiresIn, 10))
	_ = m.settings.DeleteOption(ctx, optLastError)
}

// ClearTokens deletes both access and refresh records unconditionally, so the
// next AccessToken call performs a fresh full re-authentication.
func (m *TokenManager) ClearTokens(ctx context.Context) error {
	if err := m.cache.Del(ctx, cacheKeyAccessToken); err != nil {
		return err
	}
	for _, name := range []string{optTokenExpiry, optRefreshToken, optRefreshTokenExpiry} {
		if err := m.settings.DeleteOption(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Info reports the persisted token state for the admin endpoint.
func (m *TokenManager) Info(ctx context.Context) domain.TokenInfo {
	var cached string
	hasAccess := false
	if ok, _ := m.cache.Get(ctx, cacheKeyAccessToken, &cached); ok && cached != "" {
		hasAccess = true
	}
	rt, _ := m.settings.GetOption(ctx, optRefreshToken)

	now := time.Now().Unix()
	accessExp := m.optionInt(ctx, optTokenExpiry)
	refreshExp := m.optionInt(ctx, optRefreshTokenExpiry)

	info := domain.TokenInfo{
		HasAccessToken:      hasAccess,
		AccessTokenExpires:  accessExp,
		HasRefreshToken:     rt != "",
		RefreshTokenExpires: refreshExp,
	}
	if accessExp > now {
		info.AccessTokenExpiresIn = accessExp - now
	}
	if refreshExp > now {
		info.RefreshTokenExpiresIn = refreshExp - now
	}
	return info
}

// LastError returns the most recent persisted OAuth failure, or "".
func (m *TokenManager) LastError(ctx context.Context) string {
	v, _ := m.settings.GetOption(ctx, optLastError)
	return v
}

func (m *TokenManager) optionInt(ctx context.Context, name string) int64 {
	v, _ := m.settings.GetOption(ctx, name)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// sanitizeCredential trims whitespace and strips control characters that
// sneak in through copy-paste, while keeping every valid OAuth credential
// character.
func sanitizeCredential(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r <= 0x08 || r == 0x0B || r == 0x0C || (r >= 0x0E && r <= 0x1F) || r == 0x7F {
			return -1
		}
		return r
	}, s)
}

// formatHTTPError renders a token-endpoint failure the way operators will
// read it: the OAuth error field when present, otherwise a body prefix.
func formatHTTPError(status int, body []byte) string {
	var data tokenResponse
	if json.Unmarshal(body, &data) == nil {
		if data.Error != "" {
			msg := fmt.Sprintf("HTTP %d: %s", status, data.Error)
			if data.ErrorDescription != "" {
				msg += " - " + data.ErrorDescription
			}
			return msg
		}
		if data.Message != "" {
			return fmt.Sprintf("HTTP %d: %s", status, data.Message)
		}
	}
	s := string(body)
	if len(s) > 100 {
		s = s[:100]
	}
	return fmt.Sprintf("HTTP %d: %s", status, s)
}
