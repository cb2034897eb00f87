package domain

// Room is the canonical entity served to the widget: room-type metadata from
// the IDS descriptive-info API, optionally enriched with a "from" price from
// the Shop rate calendar. Constructed fresh on every normalization pass and
// never mutated afterwards.
type Room struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Size         string   `json:"size"`
	View         string   `json:"view"`
	MaxOccupancy int      `json:"max_occupancy"`
	Amenities    []string `json:"amenities"`
	ImageURL     string   `json:"image"`
	FromPrice    *float64 `json:"from_price"`
	Currency     string   `json:"currency"`
}

// DefaultCurrency is used when no rate record carries a currency field.
const DefaultCurrency = "ZAR"

// FallbackRoomCode marks the synthetic placeholder emitted when no room
// types can be located but a hotel identifier was supplied. The booking
// engine itself will show the real rooms.
const FallbackRoomCode = "DEFAULT"

// RoomQuery carries the guest search criteria forwarded upstream. Any field
// that changes upstream results participates in the cache key.
type RoomQuery struct {
	PropertyID int
	HotelCode  string
	CheckIn    string // YYYY-MM-DD
	CheckOut   string // YYYY-MM-DD
	Adults     int
	Children   int
	Rooms      int
}

func (q RoomQuery) HasIdentifier() bool {
	return q.PropertyID > 0 || q.HotelCode != ""
}
