package agent

import (
	"sync"
	"testing"
	"time"

	"planora/internal/models"
)

func TestCacheKeyPrefersMostSpecificScope(t *testing.T) {
	if got := CacheKey(models.AgentClient, Scope{EventID: "evt-1"}, 7); got != "client-evt-1" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := CacheKey(models.AgentVenueGeneral, Scope{VenueID: "v-1"}, 7); got != "venue_general-v-1" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := CacheKey(models.AgentVenueEvent, Scope{EventID: "evt-1", VenueID: "v-1"}, 7); got != "venue_event-evt-1" {
		t.Fatalf("event id should win over venue id: %s", got)
	}
	if got := CacheKey(models.AgentClient, Scope{}, 7); got != "client-u7" {
		t.Fatalf("scopeless key should fall back to user: %s", got)
	}
}

func TestGetOrBuildUsesCacheWithinTTL(t *testing.T) {
	cache := NewPromptCache(5 * time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return now })

	builds := 0
	build := func() (string, error) {
		builds++
		return "prompt", nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.GetOrBuild("client-evt-1", build)
		if err != nil {
			t.Fatalf("GetOrBuild error: %v", err)
		}
		if got != "prompt" {
			t.Fatalf("unexpected prompt: %q", got)
		}
	}
	if builds != 1 {
		t.Fatalf("builder should run once within TTL, ran %d times", builds)
	}
}

func TestGetOrBuildRebuildsAfterTTL(t *testing.T) {
	cache := NewPromptCache(5 * time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return now })

	builds := 0
	build := func() (string, error) {
		builds++
		return "prompt", nil
	}

	if _, err := cache.GetOrBuild("k", build); err != nil {
		t.Fatalf("GetOrBuild error: %v", err)
	}
	now = now.Add(5 * time.Minute)
	if _, err := cache.GetOrBuild("k", build); err != nil {
		t.Fatalf("GetOrBuild error: %v", err)
	}
	if builds != 2 {
		t.Fatalf("builder should run again after TTL, ran %d times", builds)
	}
}

func TestCacheClear(t *testing.T) {
	cache := NewPromptCache(time.Hour)
	cache.Put("k", "v")
	if _, ok := cache.Get("k"); !ok {
		t.Fatalf("expected hit")
	}
	cache.Clear()
	if _, ok := cache.Get("k"); ok {
		t.Fatalf("expected miss after clear")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewPromptCache(time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.GetOrBuild("shared", func() (string, error) {
				return "prompt", nil
			})
		}()
	}
	wg.Wait()
	got, ok := cache.Get("shared")
	if !ok || got != "prompt" {
		t.Fatalf("expected a complete entry after racing builders, got %q ok=%v", got, ok)
	}
}
