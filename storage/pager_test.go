package storage

import "testing"

func TestPagerAppendWriteReadRoundTrip(t *testing.T) {
	p, err := OpenMemory(OpenOptions{})
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer p.Close()

	page, err := p.AppendPage(PageTypeData)
	if err != nil {
		t.Fatalf("AppendPage: %v", err)
	}
	if page.PageID() != 1 {
		t.Fatalf("first data page id = %d, want 1 (page 0 is metadata)", page.PageID())
	}

	live, err := p.GetForWrite(page.PageID())
	if err != nil {
		t.Fatalf("GetForWrite: %v", err)
	}
	live.AppendRecord("r1", []byte("payload"), SlotFlagActive)
	if err := p.WritePage(live); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	read, err := p.ReadPage(page.PageID())
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	slots := read.ReadRecords()
	if len(slots) != 1 || slots[0].ID != "r1" {
		t.Fatalf("unexpected slots after reopen-read: %+v", slots)
	}
}

func TestPagerReadPageReturnsACopy(t *testing.T) {
	p, _ := OpenMemory(OpenOptions{})
	defer p.Close()
	page, _ := p.AppendPage(PageTypeData)

	a, _ := p.ReadPage(page.PageID())
	a.SetNumRecords(99)

	b, _ := p.ReadPage(page.PageID())
	if b.NumRecords() == 99 {
		t.Fatal("mutating a page returned by ReadPage must not affect the cache")
	}
}

func TestPagerSaveAndReadMetadata(t *testing.T) {
	p, _ := OpenMemory(OpenOptions{})
	defer p.Close()

	if err := p.SaveMetadata([]byte("hello metadata")); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}
	got, err := p.ReadMetadata()
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if string(got) != "hello metadata" {
		t.Fatalf("got %q, want %q", got, "hello metadata")
	}
}

func TestPagerMetadataTooLarge(t *testing.T) {
	p, _ := OpenMemory(OpenOptions{})
	defer p.Close()
	if err := p.SaveMetadata(make([]byte, PageSize)); err == nil {
		t.Fatal("expected an error for metadata exceeding one page")
	}
}

func TestPagerReadOnlyCannotCreateEmptyStore(t *testing.T) {
	rw, _ := OpenMemory(OpenOptions{})
	rw.AppendPage(PageTypeData)
	rw.Close()

	ro, err := OpenMemory(OpenOptions{ReadOnly: true})
	if err == nil {
		defer ro.Close()
	}
	// OpenMemory always starts from an empty buffer, so creating a
	// read-only empty store must fail outright (§4.1: cannot create in
	// read-only mode).
	if err == nil {
		t.Fatal("expected an error opening an empty store read-only")
	}
}
