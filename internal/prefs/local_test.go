package prefs

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domtuner/dbopen"
)

func TestLocalRoundtrip(t *testing.T) {
	db := dbopen.OpenMemory(t)
	local, err := NewLocal(db)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if !local.Available(ctx) {
		t.Fatal("local tier should be available")
	}

	err = local.Write(ctx, Record{KeyPlaybackRate: "2.5", KeyBlurThumbs: "true"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	rec, err := local.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rec[KeyPlaybackRate] != "2.5" {
		t.Errorf("rate: got %q, want %q", rec[KeyPlaybackRate], "2.5")
	}
	if rec[KeyBlurThumbs] != "true" {
		t.Errorf("blur: got %q, want %q", rec[KeyBlurThumbs], "true")
	}
}

func TestLocalOverwrite(t *testing.T) {
	db := dbopen.OpenMemory(t)
	local, err := NewLocal(db)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := local.Write(ctx, Record{KeyPlaybackRate: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := local.Write(ctx, Record{KeyPlaybackRate: "3"}); err != nil {
		t.Fatal(err)
	}

	rec, err := local.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec[KeyPlaybackRate] != "3" {
		t.Errorf("rate: got %q, want %q", rec[KeyPlaybackRate], "3")
	}
}

func TestLocalKeysAreNamespaced(t *testing.T) {
	db := dbopen.OpenMemory(t)
	local, err := NewLocal(db)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := local.Write(ctx, Record{KeyHideHome: "false"}); err != nil {
		t.Fatal(err)
	}

	var stored string
	err = db.QueryRow(`SELECT key FROM preferences LIMIT 1`).Scan(&stored)
	if err != nil {
		t.Fatal(err)
	}
	if stored != DefaultNamespace+KeyHideHome {
		t.Errorf("stored key: got %q, want %q", stored, DefaultNamespace+KeyHideHome)
	}
}
