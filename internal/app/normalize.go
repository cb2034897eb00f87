package app

import (
	"strings"

	"github.com/akshaysorathiya9581/book-your-stay/internal/domain"
)

/********** room-type discovery **********/

// roomLocator is one strategy for finding room-type records in a response
// tree. Strategies are tried in order; new upstream shapes are supported by
// adding a locator, not by branching in the normalizer.
type roomLocator interface {
	locate(root *domain.Node) []*domain.Node
}

// pathLocator matches a known dotted path.
type pathLocator struct{ path string }

func (l pathLocator) locate(root *domain.Node) []*domain.Node {
	n := root.Lookup(l.path)
	if n == nil || n.IsEmpty() {
		return nil
	}
	return n.Items()
}

// searchLocator is the bounded-depth recursive fallback for undocumented
// nestings: keys that look room-related whose records carry at least one
// room-identifying property.
type searchLocator struct{ maxDepth int }

func (l searchLocator) locate(root *domain.Node) []*domain.Node {
	return searchRooms(root, 0, l.maxDepth)
}

// Observed shapes across SHR deployments/versions; longest (OTA-style XML)
// first, flatter JSON variants after, recursive search as the last resort.
var roomTypeLocators = []roomLocator{
	pathLocator{"HotelDescriptiveInfoRS.HotelDescriptiveInfo.RoomTypes.RoomType"},
	pathLocator{"HotelDescriptiveInfoRS.RoomTypes.RoomType"},
	pathLocator{"HotelDescriptiveInfo.RoomTypes.RoomType"},
	pathLocator{"RoomTypes.RoomType"},
	pathLocator{"roomTypes"},
	pathLocator{"rooms"},
	pathLocator{"RoomType"},
	pathLocator{"data"},
	searchLocator{maxDepth: 5},
}

func findRoomTypes(root *domain.Node) []*domain.Node {
	if root == nil {
		return nil
	}
	for _, loc := range roomTypeLocators {
		if found := loc.locate(root); len(found) > 0 {
			return found
		}
	}
	return nil
}

var roomIdentifyingProps = []string{"name", "code", "description", "roomtypecode", "roomtype", "title"}

func searchRooms(n *domain.Node, depth, maxDepth int) []*domain.Node {
	if depth >= maxDepth {
		return nil
	}
	switch n.Kind() {
	case domain.KindObject:
		for _, key := range n.Keys() {
			val := n.Get(key)
			if val.Kind() != domain.KindObject && val.Kind() != domain.KindArray {
				continue
			}
			lower := strings.ToLower(key)
			roomish := strings.Contains(lower, "roomtype") ||
				strings.Contains(lower, "room_type") ||
				(strings.Contains(lower, "room") && val.Kind() == domain.KindArray && val.Len() > 0)
			if roomish {
				items := val.Items()
				if len(items) > 0 && looksLikeRoom(items[0]) {
					return items
				}
			}
			if found := searchRooms(val, depth+1, maxDepth); found != nil {
				return found
			}
		}
	case domain.KindArray:
		for _, it := range n.Items() {
			if found := searchRooms(it, depth+1, maxDepth); found != nil {
				return found
			}
		}
	}
	return nil
}

// looksLikeRoom guards the recursive search against arrays that merely
// mention rooms: a candidate record must carry a room-identifying property,
// directly or as an attribute.
func looksLikeRoom(n *domain.Node) bool {
	if n.Kind() != domain.KindObject {
		return false
	}
	hasProp := func(obj *domain.Node) bool {
		for _, key := range obj.Keys() {
			for _, prop := range roomIdentifyingProps {
				if strings.EqualFold(key, prop) {
					return true
				}
			}
		}
		return false
	}
	return hasProp(n) || hasProp(n.Get("@attributes"))
}

/********** alias registries (single source of truth) **********/

// Candidate field locations per canonical room field, in priority order:
// attribute form first, then plain keys, then nested .Text variants.
var (
	roomNameAliases = []string{
		"RoomDescription.Text", "Name", "@attributes.Name",
		"Title", "roomName", "Description.Text", "Text",
	}
	roomDescriptionAliases = []string{"RoomDescription.Text", "Description.Text", "Description"}
	roomViewAliases        = []string{"View", "RoomView", "@attributes.View"}
	roomSizeAliases        = []string{"@attributes.Size", "Size", "Area"}
	occupancyAliases       = []string{"@attributes.MaxOccupancy", "MaxOccupancy", "Occupancy", "MaxGuests"}
	priceAliases           = []string{"price", "Price", "@attributes.Price", "MinPrice"}
	currencyAliases        = []string{"currency", "Currency", "@attributes.Currency"}
	rateRoomCodeAliases    = []string{"roomTypeCode", "@attributes.RoomTypeCode", "RoomTypeCode", "@attributes.Code"}
)

// firstText resolves the first alias that yields non-empty text.
func firstText(n *domain.Node, aliases []string) string {
	for _, path := range aliases {
		if s := n.Lookup(path).Text(); s != "" {
			return s
		}
	}
	return ""
}

// firstFloat resolves the first alias that yields a number.
func firstFloat(n *domain.Node, aliases []string) (float64, bool) {
	for _, path := range aliases {
		if f, ok := n.Lookup(path).Float(); ok {
			return f, true
		}
	}
	return 0, false
}

/********** room-type mapper **********/

// mapRoomType turns one discovered record into a Room. Missing optional
// fields degrade to empty values; a record without a resolvable name or code
// is dropped (ok=false).
func mapRoomType(rt *domain.Node) (domain.Room, bool) {
	code := rt.Attr("RoomTypeCode").Str()
	if code == "" {
		code = rt.Get("RoomTypeCode").Text()
	}
	name := firstText(rt, roomNameAliases)
	if name == "" && code == "" {
		return domain.Room{}, false
	}
	if name == "" {
		name = code
	}

	size := firstText(rt, roomSizeAliases)
	if size == "" {
		if sqm := rt.Get("SquareMeters").Text(); sqm != "" {
			size = sqm + "m²"
		}
	}

	room := domain.Room{
		Code:         code,
		Name:         name,
		Description:  firstText(rt, roomDescriptionAliases),
		Size:         size,
		View:         firstText(rt, roomViewAliases),
		MaxOccupancy: 2,
		Amenities:    mapAmenities(rt),
		ImageURL:     mapImage(rt),
		Currency:     domain.DefaultCurrency,
	}
	for _, path := range occupancyAliases {
		if v, ok := rt.Lookup(path).Float(); ok && v >= 1 {
			room.MaxOccupancy = int(v)
			break
		}
	}
	return room, true
}

// mapAmenities reduces each amenity entry to its code or text label,
// skipping unlabeled entries.
func mapAmenities(rt *domain.Node) []string {
	out := []string{}
	for _, a := range rt.Lookup("Amenities.Amenity").Items() {
		label := a.Attr("Code").Str()
		if label == "" {
			label = a.Text()
		}
		if label != "" {
			out = append(out, label)
		}
	}
	return out
}

func mapImage(rt *domain.Node) string {
	if imgs := rt.Lookup("Images.Image").Items(); len(imgs) > 0 {
		if u := imgs[0].Get("URL").Text(); u != "" {
			return u
		}
	}
	img := rt.Get("Image")
	if s := img.Str(); s != "" {
		return s
	}
	return img.Get("URL").Text()
}

/********** rate discovery & merge **********/

// rateRecord pairs a raw rate node with its owning room-type code when the
// code lives on an enclosing RoomType element rather than on the rate itself.
type rateRecord struct {
	roomCode string
	node     *domain.Node
}

func findRates(rc *domain.Node) []rateRecord {
	if rc == nil {
		return nil
	}

	if cal := rc.Get("RateCalendar"); cal != nil {
		if rates := cal.Lookup("Rates.Rate"); !rates.IsEmpty() {
			return untagged(rates.Items())
		}
		if roomTypes := cal.Lookup("RoomTypes.RoomType"); !roomTypes.IsEmpty() {
			var out []rateRecord
			for _, rt := range roomTypes.Items() {
				code := rt.Attr("Code").Str()
				if code == "" {
					code = rt.Get("RoomTypeCode").Text()
				}
				for _, rate := range rt.Lookup("Rates.Rate").Items() {
					out = append(out, rateRecord{roomCode: code, node: rate})
				}
			}
			return out
		}
		if rates := cal.Get("Rate"); !rates.IsEmpty() {
			return untagged(rates.Items())
		}
		return nil
	}

	for _, key := range []string{"rates", "Rate", "data"} {
		if rates := rc.Get(key); !rates.IsEmpty() {
			return untagged(rates.Items())
		}
	}
	return nil
}

func untagged(nodes []*domain.Node) []rateRecord {
	out := make([]rateRecord, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, rateRecord{node: n})
	}
	return out
}

// ratePrice extracts one record's price: the minimum of the per-day
// breakdown when present, else the first direct price field.
func ratePrice(n *domain.Node) (float64, bool) {
	if daily := n.Lookup("DailyRates.DailyRate"); !daily.IsEmpty() {
		var best float64
		found := false
		for _, d := range daily.Items() {
			p, ok := d.Get("Price").Float()
			if !ok {
				p, ok = d.Attr("Price").Float()
			}
			if ok && (!found || p < best) {
				best, found = p, true
			}
		}
		if found {
			return best, true
		}
	}
	return firstFloat(n, priceAliases)
}

// minPriceFor scans all rate records matching a room code and returns the
// overall minimum plus the currency of the record that produced it.
func minPriceFor(code string, rates []rateRecord) (*float64, string) {
	if code == "" {
		return nil, ""
	}
	var best *float64
	currency := ""
	for _, r := range rates {
		rcode := r.roomCode
		if rcode == "" {
			rcode = firstText(r.node, rateRoomCodeAliases)
		}
		if rcode != code {
			continue
		}
		price, ok := ratePrice(r.node)
		if !ok {
			continue
		}
		if best == nil || price < *best {
			p := price
			best = &p
			currency = firstText(r.node, currencyAliases)
		}
	}
	return best, currency
}

/********** normalizer **********/

// Normalize reconciles the two upstream trees into the canonical room list.
// Pure: no I/O, fresh Rooms on every pass, ordering follows the
// descriptive-info response. A missing or undecodable rate calendar leaves
// rooms priceless; pricing is an enrichment, not a precondition.
func Normalize(descriptiveInfo, rateCalendar *domain.Node) []domain.Room {
	roomTypes := findRoomTypes(descriptiveInfo)
	if len(roomTypes) == 0 {
		return nil
	}
	rates := findRates(rateCalendar)

	rooms := make([]domain.Room, 0, len(roomTypes))
	for _, rt := range roomTypes {
		room, ok := mapRoomType(rt)
		if !ok {
			continue
		}
		if price, currency := minPriceFor(room.Code, rates); price != nil {
			room.FromPrice = price
			if currency != "" {
				room.Currency = currency
			}
		}
		rooms = append(rooms, room)
	}
	return rooms
}

// FallbackRoom is the synthetic placeholder emitted when no room types can
// be located for a configured hotel: the widget still renders and the
// booking engine shows the real inventory.
func FallbackRoom() domain.Room {
	return domain.Room{
		Code:         domain.FallbackRoomCode,
		Name:         "Available Rooms",
		Description:  "Click Book Now to view all available rooms and rates for your selected dates.",
		MaxOccupancy: 2,
		Amenities:    []string{},
		Currency:     domain.DefaultCurrency,
	}
}
