package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fridayhq/friday/models"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func TestLedgerSeenMark(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	seen, err := c.Seen(ctx, "notes.txt_120")
	if err != nil || seen {
		t.Fatalf("expected unseen, got seen=%v err=%v", seen, err)
	}
	if err := c.Mark(ctx, "notes.txt_120"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	seen, err = c.Seen(ctx, "notes.txt_120")
	if err != nil || !seen {
		t.Fatalf("expected seen after mark, got seen=%v err=%v", seen, err)
	}
	// A different content length is a different document version.
	seen, _ = c.Seen(ctx, "notes.txt_121")
	if seen {
		t.Fatalf("changed document must not be seen")
	}
}

func TestListingRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if _, ok, err := c.GetListing(ctx, "folder-1"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	refs := []models.FileRef{
		{ID: "f1", Name: "agenda.docx", MimeType: "application/vnd.google-apps.document"},
		{ID: "f2", Name: "notes.txt", MimeType: "text/plain"},
	}
	if err := c.SetListing(ctx, "folder-1", refs); err != nil {
		t.Fatalf("set listing: %v", err)
	}
	got, ok, err := c.GetListing(ctx, "folder-1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[0].Name != "agenda.docx" {
		t.Fatalf("unexpected listing %+v", got)
	}

	// Entries expire.
	mr.FastForward(listingTTL * 2)
	if _, ok, _ := c.GetListing(ctx, "folder-1"); ok {
		t.Fatalf("expected listing to expire")
	}
}

func TestInvalidateListing(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	c.SetListing(ctx, "folder-1", []models.FileRef{{ID: "f1", Name: "a"}})
	if err := c.InvalidateListing(ctx, "folder-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.GetListing(ctx, "folder-1"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}
