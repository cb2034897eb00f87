package httpserver

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akshaysorathiya9581/book-your-stay/internal/app"
	"github.com/akshaysorathiya9581/book-your-stay/internal/domain"
)

// Handlers exposes the room read path and the operator endpoints. AdminToken
// gates everything that mutates state or leaks credentials diagnostics;
// leaving it empty disables those endpoints entirely.
type Handlers struct {
	Rooms      *app.RoomService
	Links      *app.DeepLinker
	Tokens     domain.TokenSource
	AdminToken string
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/rooms", h.listRooms)
	s.mux.Get("/v1/booking-link", h.bookingLink)
	s.mux.Get("/v1/token", h.admin(h.tokenInfo))
	s.mux.Delete("/v1/token", h.admin(h.clearTokens))
	s.mux.Delete("/v1/rooms/cache", h.admin(h.purgeRooms))
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// admin wraps operator endpoints behind the shared-token header check.
func (h *Handlers) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.isAdmin(r) {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin token required")
			return
		}
		next(w, r)
	}
}

func (h *Handlers) isAdmin(r *http.Request) bool {
	if h.AdminToken == "" {
		return false
	}
	got := r.Header.Get("X-Admin-Token")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.AdminToken)) == 1
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func parseDate(s string) (string, bool) {
	if s == "" {
		return "", true
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", false
	}
	return s, true
}

func (h *Handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	q := domain.RoomQuery{HotelCode: qs.Get("hotel_code")}
	q.PropertyID, _ = strconv.Atoi(qs.Get("property_id"))
	q.Adults, _ = strconv.Atoi(qs.Get("adults"))
	q.Children, _ = strconv.Atoi(qs.Get("children"))
	q.Rooms, _ = strconv.Atoi(qs.Get("rooms"))

	var ok bool
	if q.CheckIn, ok = parseDate(qs.Get("checkin")); !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid date", "checkin must be YYYY-MM-DD")
		return
	}
	if q.CheckOut, ok = parseDate(qs.Get("checkout")); !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid date", "checkout must be YYYY-MM-DD")
		return
	}

	// Cache bypass is an operator tool, silently ignored for guests.
	bypass := qs.Get("refresh") == "1" && h.isAdmin(r)

	rooms, err := h.Rooms.ListRooms(r.Context(), q, bypass)
	if err != nil {
		if errors.Is(err, app.ErrNoHotel) {
			writeProblem(w, http.StatusBadRequest, "No hotel", "supply hotel_code or property_id, or configure a default")
			return
		}
		writeProblem(w, http.StatusBadGateway, "Upstream unavailable", "no rooms available right now")
		return
	}

	resp := struct {
		Rooms []domain.Room `json:"rooms"`
	}{Rooms: rooms}

	etag, body := calcETagAndBody(resp)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listRooms body")
	}
}

func (h *Handlers) bookingLink(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	p := app.BookingLinkParams{
		Page:      qs.Get("page"),
		HotelCode: qs.Get("pcode"),
		CheckIn:   qs.Get("checkin"),
		CheckOut:  qs.Get("checkout"),
		ChildAges: qs.Get("child_ages"),
		Promo:     qs.Get("promo"),
		Group:     qs.Get("group"),
		Corp:      qs.Get("corp"),
		Access:    qs.Get("access"),
	}
	p.PropertyID, _ = strconv.Atoi(qs.Get("property_id"))
	p.HotelID, _ = strconv.Atoi(qs.Get("hotel_id"))
	p.Nights, _ = strconv.Atoi(qs.Get("nights"))
	p.Adults, _ = strconv.Atoi(qs.Get("adults"))
	p.Children, _ = strconv.Atoi(qs.Get("children"))
	p.Rooms, _ = strconv.Atoi(qs.Get("rooms"))
	p.LangID, _ = strconv.Atoi(qs.Get("lang_id"))
	p.CurrID, _ = strconv.Atoi(qs.Get("curr_id"))

	resp := struct {
		URL string `json:"url"`
	}{URL: h.Links.GenerateBookingLink(p)}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to write bookingLink body")
	}
}

func (h *Handlers) tokenInfo(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		domain.TokenInfo
		LastError string `json:"last_error,omitempty"`
	}{
		TokenInfo: h.Tokens.Info(r.Context()),
		LastError: h.Tokens.LastError(r.Context()),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to write tokenInfo body")
	}
}

func (h *Handlers) clearTokens(w http.ResponseWriter, r *http.Request) {
	if err := h.Tokens.ClearTokens(r.Context()); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Clear failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) purgeRooms(w http.ResponseWriter, r *http.Request) {
	if err := h.Rooms.PurgeAll(r.Context()); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Purge failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
