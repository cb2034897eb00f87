package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akshaysorathiya9581/book-your-stay/internal/adapters/observability"
	"github.com/akshaysorathiya9581/book-your-stay/internal/domain"
)

// ErrNoHotel means neither the request nor the configuration carried a
// hotel identifier, so there is nothing to ask upstream about.
var ErrNoHotel = errors.New("app: no hotel code or property ID configured")

const roomCachePrefix = "rooms:"

// RoomService owns the room-list read path: cache-aside over the two
// upstream fetches plus normalization.
type RoomService struct {
	client domain.ShopClient
	cache  domain.Cache
	ttl    time.Duration

	defaultHotelCode  string
	defaultPropertyID int
}

func NewRoomService(client domain.ShopClient, cache domain.Cache, ttl time.Duration, hotelCode string, propertyID int) *RoomService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RoomService{
		client:            client,
		cache:             cache,
		ttl:               ttl,
		defaultHotelCode:  hotelCode,
		defaultPropertyID: propertyID,
	}
}

// ListRooms returns the canonical room list for the query, served from cache
// when a fresh entry exists. bypass forces an upstream refetch; the result
// still lands in the cache for subsequent readers.
func (s *RoomService) ListRooms(ctx context.Context, q domain.RoomQuery, bypass bool) ([]domain.Room, error) {
	q = s.withDefaults(q)
	if !q.HasIdentifier() {
		return nil, ErrNoHotel
	}
	key := roomCacheKey(q)

	if !bypass {
		var cached []domain.Room
		ok, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("room cache read failed")
		}
		if ok {
			observability.ObserveCache("rooms", "hit")
			return cached, nil
		}
		observability.ObserveCache("rooms", "miss")
	}

	rooms, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	// An empty list is never cached: a transient upstream hiccup must not
	// pin "no rooms" for a full TTL.
	if len(rooms) > 0 {
		if err := s.cache.Set(ctx, key, rooms, int(s.ttl.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("room cache write failed")
		}
	}
	return rooms, nil
}

func (s *RoomService) fetch(ctx context.Context, q domain.RoomQuery) ([]domain.Room, error) {
	desc, err := s.client.HotelDescriptiveInfo(ctx, q)
	if err != nil {
		return nil, err
	}

	// Pricing is best-effort: a failed rate-calendar call degrades to
	// priceless rooms instead of an error.
	rates, err := s.client.RateCalendar(ctx, q)
	if err != nil {
		log.Warn().Err(err).Msg("rate calendar fetch failed, serving rooms without prices")
		rates = nil
	}

	rooms := Normalize(desc, rates)
	if len(rooms) == 0 {
		log.Info().Str("hotel_code", q.HotelCode).Int("property_id", q.PropertyID).
			Msg("no room types located, emitting fallback room")
		rooms = []domain.Room{FallbackRoom()}
	}
	return rooms, nil
}

// Invalidate drops the cached list for one query.
func (s *RoomService) Invalidate(ctx context.Context, q domain.RoomQuery) error {
	return s.cache.Del(ctx, roomCacheKey(s.withDefaults(q)))
}

// PurgeAll drops every cached room list.
func (s *RoomService) PurgeAll(ctx context.Context) error {
	return s.cache.DelPrefix(ctx, roomCachePrefix)
}

func (s *RoomService) withDefaults(q domain.RoomQuery) domain.RoomQuery {
	if !q.HasIdentifier() {
		q.PropertyID = s.defaultPropertyID
		q.HotelCode = s.defaultHotelCode
	}
	return q
}

// roomCacheKey hashes the canonical parameter string so that any field
// affecting upstream results yields a distinct entry.
func roomCacheKey(q domain.RoomQuery) string {
	canonical := strings.Join([]string{
		"adults=" + strconv.Itoa(q.Adults),
		"checkin=" + q.CheckIn,
		"checkout=" + q.CheckOut,
		"children=" + strconv.Itoa(q.Children),
		"hotel_code=" + q.HotelCode,
		"property_id=" + strconv.Itoa(q.PropertyID),
		"rooms=" + strconv.Itoa(q.Rooms),
	}, "&")
	sum := sha1.Sum([]byte(canonical))
	return roomCachePrefix + hex.EncodeToString(sum[:])
}
