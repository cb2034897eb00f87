package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/akshaysorathiya9581/book-your-stay/internal/domain"
)

type fakeCache struct {
	data map[string][]byte
	ttls map[string]int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = b
	c.ttls[key] = ttlSec
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *fakeCache) DelPrefix(_ context.Context, prefix string) error {
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

type fakeShopClient struct {
	desc      *domain.Node
	rates     *domain.Node
	descErr   error
	rateErr   error
	descCalls int
	rateCalls int
}

func (c *fakeShopClient) RateCalendar(context.Context, domain.RoomQuery) (*domain.Node, error) {
	c.rateCalls++
	return c.rates, c.rateErr
}

func (c *fakeShopClient) HotelDescriptiveInfo(context.Context, domain.RoomQuery) (*domain.Node, error) {
	c.descCalls++
	return c.desc, c.descErr
}

func twoRoomsDescriptive() *domain.Node {
	return domain.FromAny(map[string]any{
		"RoomTypes": map[string]any{
			"RoomType": []any{
				map[string]any{"RoomTypeCode": "DLX", "Name": "Deluxe"},
				map[string]any{"RoomTypeCode": "STD", "Name": "Standard"},
			},
		},
	})
}

func TestListRooms_ServesFromCacheWithinTTL(t *testing.T) {
	client := &fakeShopClient{desc: twoRoomsDescriptive()}
	cache := newFakeCache()
	svc := NewRoomService(client, cache, time.Hour, "MYHOTEL", 0)
	ctx := context.Background()

	first, err := svc.ListRooms(ctx, domain.RoomQuery{}, false)
	if err != nil {
		t.Fatalf("first ListRooms: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("rooms = %d, want 2", len(first))
	}

	second, err := svc.ListRooms(ctx, domain.RoomQuery{}, false)
	if err != nil {
		t.Fatalf("second ListRooms: %v", err)
	}
	if client.descCalls != 1 || client.rateCalls != 1 {
		t.Fatalf("upstream calls = %d/%d, want 1/1", client.descCalls, client.rateCalls)
	}
	if len(second) != 2 || second[0].Code != first[0].Code {
		t.Fatalf("cached result differs: %+v", second)
	}

	for _, ttl := range cache.ttls {
		if ttl != 3600 {
			t.Errorf("cache TTL = %d, want 3600", ttl)
		}
	}
}

func TestListRooms_BypassRefetchesAndRecaches(t *testing.T) {
	client := &fakeShopClient{desc: twoRoomsDescriptive()}
	cache := newFakeCache()
	svc := NewRoomService(client, cache, time.Hour, "MYHOTEL", 0)
	ctx := context.Background()

	if _, err := svc.ListRooms(ctx, domain.RoomQuery{}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ListRooms(ctx, domain.RoomQuery{}, true); err != nil {
		t.Fatal(err)
	}
	if client.descCalls != 2 {
		t.Fatalf("descCalls = %d, want 2 after bypass", client.descCalls)
	}
	if len(cache.data) != 1 {
		t.Fatalf("cache entries = %d, want 1", len(cache.data))
	}
}

func TestListRooms_NoIdentifier(t *testing.T) {
	client := &fakeShopClient{desc: twoRoomsDescriptive()}
	svc := NewRoomService(client, newFakeCache(), time.Hour, "", 0)

	_, err := svc.ListRooms(context.Background(), domain.RoomQuery{}, false)
	if !errors.Is(err, ErrNoHotel) {
		t.Fatalf("err = %v, want ErrNoHotel", err)
	}
	if client.descCalls != 0 {
		t.Fatalf("upstream called despite missing identifier")
	}
}

func TestListRooms_DescriptiveInfoFailureAbortsAndSkipsCache(t *testing.T) {
	client := &fakeShopClient{descErr: errors.New("upstream down")}
	cache := newFakeCache()
	svc := NewRoomService(client, cache, time.Hour, "MYHOTEL", 0)

	if _, err := svc.ListRooms(context.Background(), domain.RoomQuery{}, false); err == nil {
		t.Fatal("expected error")
	}
	if len(cache.data) != 0 {
		t.Fatalf("error result was cached")
	}
	if client.rateCalls != 0 {
		t.Fatalf("rate calendar fetched after descriptive-info failure")
	}
}

func TestListRooms_RateFailureDegradesToPriceless(t *testing.T) {
	client := &fakeShopClient{desc: twoRoomsDescriptive(), rateErr: errors.New("shop 500")}
	svc := NewRoomService(client, newFakeCache(), time.Hour, "MYHOTEL", 0)

	rooms, err := svc.ListRooms(context.Background(), domain.RoomQuery{}, false)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("rooms = %d, want 2", len(rooms))
	}
	for _, r := range rooms {
		if r.FromPrice != nil {
			t.Errorf("room %s has price despite rate failure", r.Code)
		}
	}
}

func TestListRooms_FallbackWhenNoRoomTypesLocated(t *testing.T) {
	client := &fakeShopClient{desc: domain.FromAny(map[string]any{"Success": true})}
	svc := NewRoomService(client, newFakeCache(), time.Hour, "MYHOTEL", 0)

	rooms, err := svc.ListRooms(context.Background(), domain.RoomQuery{}, false)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Code != domain.FallbackRoomCode {
		t.Fatalf("rooms = %+v, want single fallback", rooms)
	}
}

func TestRoomCacheKey_DistinguishesQueries(t *testing.T) {
	a := roomCacheKey(domain.RoomQuery{HotelCode: "A", Adults: 2})
	b := roomCacheKey(domain.RoomQuery{HotelCode: "A", Adults: 3})
	if a == b {
		t.Fatal("distinct queries share a cache key")
	}
	if !strings.HasPrefix(a, roomCachePrefix) {
		t.Fatalf("key %q lacks prefix", a)
	}
}

func TestPurgeAll(t *testing.T) {
	client := &fakeShopClient{desc: twoRoomsDescriptive()}
	cache := newFakeCache()
	svc := NewRoomService(client, cache, time.Hour, "MYHOTEL", 0)
	ctx := context.Background()

	if _, err := svc.ListRooms(ctx, domain.RoomQuery{}, false); err != nil {
		t.Fatal(err)
	}
	cache.data["other:key"] = []byte(`"keep"`)

	if err := svc.PurgeAll(ctx); err != nil {
		t.Fatal(err)
	}
	for k := range cache.data {
		if strings.HasPrefix(k, roomCachePrefix) {
			t.Fatalf("room key %q survived purge", k)
		}
	}
	if _, ok := cache.data["other:key"]; !ok {
		t.Fatal("purge removed unrelated key")
	}
}
