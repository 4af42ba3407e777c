package mediagroup

import (
	"sync"
	"testing"
	"time"
)

func collect(debounce time.Duration) (*Aggregator, func() []Album) {
	var mu sync.Mutex
	var albums []Album

	ag := New(Options{
		Debounce: debounce,
		OnFlush: func(a Album) {
			mu.Lock()
			albums = append(albums, a)
			mu.Unlock()
		},
	})

	return ag, func() []Album {
		mu.Lock()
		defer mu.Unlock()
		out := make([]Album, len(albums))
		copy(out, albums)
		return out
	}
}

func TestAggregatorFlushesOnce(t *testing.T) {
	ag, albums := collect(30 * time.Millisecond)

	for i, caption := range []string{"", "make it blue", ""} {
		ag.Add(Item{
			ChatID:       1,
			UserID:       2,
			MediaGroupID: "g1",
			Caption:      caption,
			FileID:       string(rune('a' + i)),
		})
	}

	time.Sleep(100 * time.Millisecond)

	got := albums()
	if len(got) != 1 {
		t.Fatalf("flushed %d albums, want 1", len(got))
	}
	if len(got[0].FileIDs) != 3 {
		t.Fatalf("album has %d photos, want 3", len(got[0].FileIDs))
	}
	if got[0].Caption != "make it blue" {
		t.Fatalf("caption = %q, want the one non-empty caption", got[0].Caption)
	}
	if got[0].ChatID != 1 || got[0].UserID != 2 {
		t.Fatalf("album identity mismatch: %+v", got[0])
	}
}

func TestAggregatorCapsPhotos(t *testing.T) {
	ag, albums := collect(20 * time.Millisecond)

	for i := 0; i < maxAlbumPhotos+3; i++ {
		ag.Add(Item{ChatID: 1, UserID: 2, MediaGroupID: "g1", FileID: string(rune('a' + i))})
	}

	time.Sleep(80 * time.Millisecond)

	got := albums()
	if len(got) != 1 || len(got[0].FileIDs) != maxAlbumPhotos {
		t.Fatalf("got %+v, want one album capped at %d photos", got, maxAlbumPhotos)
	}
}

func TestAggregatorSeparatesAlbums(t *testing.T) {
	ag, albums := collect(20 * time.Millisecond)

	ag.Add(Item{ChatID: 1, UserID: 2, MediaGroupID: "g1", FileID: "a"})
	ag.Add(Item{ChatID: 1, UserID: 2, MediaGroupID: "g2", FileID: "b"})
	ag.Add(Item{ChatID: 9, UserID: 2, MediaGroupID: "g1", FileID: "c"})

	time.Sleep(80 * time.Millisecond)

	if got := albums(); len(got) != 3 {
		t.Fatalf("flushed %d albums, want 3", len(got))
	}
}

func TestAggregatorIgnoresIncompleteItems(t *testing.T) {
	ag, albums := collect(20 * time.Millisecond)

	ag.Add(Item{ChatID: 1, UserID: 2, MediaGroupID: "", FileID: "a"})
	ag.Add(Item{ChatID: 1, UserID: 2, MediaGroupID: "g1", FileID: ""})

	time.Sleep(60 * time.Millisecond)

	if got := albums(); len(got) != 0 {
		t.Fatalf("flushed %d albums, want 0", len(got))
	}
}
