package shr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/akshaysorathiya9581/book-your-stay/internal/adapters/observability"
	"github.com/akshaysorathiya9581/book-your-stay/internal/domain"
)

var (
	ErrNoIdentifier = errors.New("shr: no property ID or hotel code available")
	ErrUpstream     = errors.New("shr: upstream error")
	ErrDecode       = errors.New("shr: response not decodable as JSON or XML")
)

const (
	rateCalendarPath    = "/wsapi/shop/ratecalendar"
	descriptiveInfoPath = "/ids/hoteldescriptiveinfo"
)

// Client issues authenticated GETs against the two SHR API families and
// decodes responses into the generic tree. It never retries a failed data
// call; the caller decides whether to degrade or abort.
type Client struct {
	shopBase string
	idsBase  string
	tokens   domain.TokenSource
	hc       *http.Client
	rl       *rate.Limiter
}

// NewClient builds a client against explicit base URLs (see ShopBaseURL /
// IDSBaseURL; tests pass httptest servers).
func NewClient(shopBase, idsBase string, tokens domain.TokenSource, rps int) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		shopBase: shopBase,
		idsBase:  idsBase,
		tokens:   tokens,
		hc:       &http.Client{Timeout: 30 * time.Second},
		rl:       rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// RateCalendar fetches per-day minimum pricing per room type from the Shop
// API. Dates default to tomorrow / +3 days; RateReturnType=MinPerRoom asks
// for the cheapest representative nightly rate, which is what "from" pricing
// wants.
func (c *Client) RateCalendar(ctx context.Context, q domain.RoomQuery) (*domain.Node, error) {
	if !q.HasIdentifier() {
		return nil, ErrNoIdentifier
	}

	checkin := q.CheckIn
	if checkin == "" {
		checkin = time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	}
	checkout := q.CheckOut
	if checkout == "" {
		checkout = time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	}

	qs := url.Values{}
	if q.PropertyID > 0 {
		qs.Set("propertyID", strconv.Itoa(q.PropertyID))
	}
	if q.HotelCode != "" {
		qs.Set("pcode", q.HotelCode)
	}
	qs.Set("checkin", checkin)
	qs.Set("checkout", checkout)
	if q.Adults > 0 {
		qs.Set("adults", strconv.Itoa(q.Adults))
	}
	if q.Children > 0 {
		qs.Set("children", strconv.Itoa(q.Children))
	}
	if q.Rooms > 0 {
		qs.Set("rooms", strconv.Itoa(q.Rooms))
	}
	qs.Set("RateReturnType", "MinPerRoom")

	// the calendar is month-scoped; derive it from the stay start
	month, year := time.Now().Format("01"), time.Now().Format("2006")
	if t, err := time.Parse("2006-01-02", checkin); err == nil {
		month, year = t.Format("01"), t.Format("2006")
	}
	qs.Set("month", month)
	qs.Set("year", year)

	return c.call(ctx, c.shopBase, rateCalendarPath, qs)
}

// HotelDescriptiveInfo fetches room-type metadata (names, descriptions,
// amenities) from the IDS Distribution Pull API, conceptually an OTA
// HotelDescriptiveInfoRQ.
func (c *Client) HotelDescriptiveInfo(ctx context.Context, q domain.RoomQuery) (*domain.Node, error) {
	if !q.HasIdentifier() {
		return nil, ErrNoIdentifier
	}

	qs := url.Values{}
	if q.PropertyID > 0 {
		qs.Set("propertyID", strconv.Itoa(q.PropertyID))
	}
	if q.HotelCode != "" {
		qs.Set("hotelCode", q.HotelCode)
	}
	return c.call(ctx, c.idsBase, descriptiveInfoPath, qs)
}

// call performs one authenticated GET. Rate-calendar and IDS endpoints are
// known to return XML on some deployments, so those get a multi-type Accept
// header and an XML fallback decode.
func (c *Client) call(ctx context.Context, base, path string, qs url.Values) (*domain.Node, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		// no network call without a token
		return nil, err
	}

	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	u := base + path
	if len(qs) > 0 {
		u += "?" + qs.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	xmlCapable := strings.Contains(path, "ratecalendar") || strings.HasPrefix(path, "/ids/")
	if xmlCapable {
		req.Header.Set("Accept", "application/xml, application/json, text/xml")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("shr: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	observability.ObserveExternal("shr", path, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("path", path).
			Str("body", truncate(string(body), 200)).Msg("shr: data call failed")
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(string(body), 200))
	}

	if n := decodeJSON(body); n != nil {
		return n, nil
	}
	if xmlCapable {
		if n, xerr := decodeXML(body); xerr == nil {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDecode, truncate(string(body), 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
