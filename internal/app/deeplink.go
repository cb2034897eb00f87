package app

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Windsurfer CRS internet booking engine pages. "index" is the generic
// landing page; "shop" preselects the rate-shopping flow.
var bookingBaseURLs = map[string]string{
	"index":   "https://res.windsurfercrs.com/ibe/index.aspx",
	"details": "https://res.windsurfercrs.com/ibe/details.aspx",
	"shop":    "https://res.windsurfercrs.com/ibe/shop.aspx",
	"default": "https://res.windsurfercrs.com/ibe/default.aspx",
	"confirm": "https://res.windsurfercrs.com/ibe/confirm.aspx",
}

// BookingLinkParams are the guest selections encoded into a CRS deep link.
// Zero values are omitted from the query string.
type BookingLinkParams struct {
	Page       string // index|details|shop|default|confirm
	PropertyID int
	HotelID    int
	HotelCode  string
	CheckIn    string // YYYY-MM-DD or MM/DD/YYYY
	CheckOut   string
	Nights     int
	Adults     int
	Children   int
	ChildAges  string // comma-separated
	Rooms      int
	Promo      string
	Group      string
	Corp       string
	Access     string
	LangID     int
	CurrID     int
}

// DeepLinker builds booking-engine URLs, falling back to the configured
// property when the caller supplies no hotel identifier.
type DeepLinker struct {
	defaultHotelCode  string
	defaultPropertyID int
}

func NewDeepLinker(hotelCode string, propertyID int) *DeepLinker {
	return &DeepLinker{defaultHotelCode: hotelCode, defaultPropertyID: propertyID}
}

// GenerateBookingLink renders the CRS URL for the given selections. Unknown
// pages fall back to the index page; dates are converted to the engine's
// MM/DD/YYYY format.
func (d *DeepLinker) GenerateBookingLink(p BookingLinkParams) string {
	base, ok := bookingBaseURLs[p.Page]
	if !ok {
		base = bookingBaseURLs["index"]
	}

	q := url.Values{}
	switch {
	case p.PropertyID > 0:
		q.Set("propertyID", strconv.Itoa(p.PropertyID))
	case p.HotelID > 0:
		q.Set("hotelID", strconv.Itoa(p.HotelID))
	case p.HotelCode != "":
		q.Set("pcode", p.HotelCode)
	case d.defaultPropertyID > 0:
		q.Set("propertyID", strconv.Itoa(d.defaultPropertyID))
	case d.defaultHotelCode != "":
		q.Set("pcode", d.defaultHotelCode)
	}

	if p.CheckIn != "" {
		q.Set("checkin", convertDateFormat(p.CheckIn))
	}
	if p.CheckOut != "" {
		q.Set("checkout", convertDateFormat(p.CheckOut))
	}
	setInt := func(key string, v int) {
		if v > 0 {
			q.Set(key, strconv.Itoa(v))
		}
	}
	setInt("nights", p.Nights)
	setInt("adults", p.Adults)
	setInt("children", p.Children)
	if p.ChildAges != "" {
		q.Set("childAges", p.ChildAges)
	}
	setInt("rooms", p.Rooms)
	setStr := func(key, v string) {
		if v != "" {
			q.Set(key, v)
		}
	}
	setStr("Promo", p.Promo)
	setStr("Group", p.Group)
	setStr("Corp", p.Corp)
	setStr("Access", p.Access)
	setInt("langID", p.LangID)
	setInt("currID", p.CurrID)

	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

var crsDateFormat = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// convertDateFormat turns a date into the MM/DD/YYYY the booking engine
// expects. Already-converted values pass through; unparseable input is
// returned unchanged rather than dropped.
func convertDateFormat(date string) string {
	if crsDateFormat.MatchString(date) {
		return date
	}
	if parts := strings.Split(date, "-"); len(parts) == 3 && len(parts[0]) == 4 {
		return parts[1] + "/" + parts[2] + "/" + parts[0]
	}
	for _, layout := range []string{"2006-01-02", "2006/01/02", "Jan 2, 2006", "2 January 2006"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("01/02/2006")
		}
	}
	return date
}
