package store

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadAbsentFileYieldsEmptySnapshot(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	snap, err := fs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.OwnerID != nil {
		t.Errorf("expected no owner, got %d", *snap.OwnerID)
	}
	if len(snap.Rooms) != 0 || len(snap.Correlation) != 0 {
		t.Errorf("expected empty containers, got rooms=%d correlation=%d",
			len(snap.Rooms), len(snap.Correlation))
	}
	if snap.TokenSeq != 0 {
		t.Errorf("expected zero token_seq, got %d", snap.TokenSeq)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	fs := NewFileStore(path)

	owner := int64(7)
	snap := NewSnapshot()
	snap.OwnerID = &owner
	snap.Rooms["support"] = Room{Admins: []int64{42, 43}}
	snap.Rooms["billing"] = Room{Admins: []int64{}}
	snap.Correlation["m1-99"] = Entry{SenderID: 99, Room: "support", ChatID: 99, MessageID: 5}
	snap.TokenSeq = 1

	if err := fs.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := fs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.OwnerID == nil || *got.OwnerID != 7 {
		t.Errorf("owner mismatch: %v", got.OwnerID)
	}
	if len(got.Rooms["support"].Admins) != 2 {
		t.Errorf("support admins mismatch: %v", got.Rooms["support"].Admins)
	}
	entry, ok := got.Correlation["m1-99"]
	if !ok || entry.SenderID != 99 || entry.Room != "support" || entry.MessageID != 5 {
		t.Errorf("correlation entry mismatch: %+v (ok=%v)", entry, ok)
	}
	if got.TokenSeq != 1 {
		t.Errorf("token_seq mismatch: %d", got.TokenSeq)
	}
}

func TestSaveIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	fs := NewFileStore(path)

	owner := int64(1)
	snap := NewSnapshot()
	snap.OwnerID = &owner
	snap.Rooms["zeta"] = Room{Admins: []int64{3, 1, 2}}
	snap.Rooms["alpha"] = Room{Admins: []int64{9}}
	snap.Correlation["m2-5"] = Entry{SenderID: 5, Room: "zeta", ChatID: 5, MessageID: 11}
	snap.Correlation["m1-4"] = Entry{SenderID: 4, Room: "alpha", ChatID: 4, MessageID: 10}
	snap.TokenSeq = 2

	if err := fs.Save(snap); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}

	reloaded, err := fs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := fs.Save(reloaded); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("save(load(save(x))) differs from save(x):\n%s\n---\n%s", first, second)
	}
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if _, err := NewFileStore(path).Load(); err == nil {
		t.Fatal("expected decode error for malformed snapshot")
	} else if !strings.Contains(err.Error(), path) {
		t.Errorf("error should mention path, got: %v", err)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(filepath.Join(dir, "state.json"))

	if err := fs.Save(NewSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	owner := int64(7)
	snap := NewSnapshot()
	snap.OwnerID = &owner
	snap.Rooms["support"] = Room{Admins: []int64{42}}

	clone := snap.Clone()
	clone.Rooms["support"].Admins[0] = 1000
	delete(clone.Rooms, "support")
	*clone.OwnerID = 8

	if *snap.OwnerID != 7 {
		t.Errorf("owner mutated through clone: %d", *snap.OwnerID)
	}
	room, ok := snap.Rooms["support"]
	if !ok || room.Admins[0] != 42 {
		t.Errorf("rooms mutated through clone: %+v (ok=%v)", room, ok)
	}
}
