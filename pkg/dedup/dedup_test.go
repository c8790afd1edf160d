package dedup

import (
	"testing"
	"time"
)

func TestShouldProcess(t *testing.T) {
	d := New(time.Minute, 10)
	if !d.ShouldProcess("a") {
		t.Fatalf("first delivery dropped")
	}
	if d.ShouldProcess("a") {
		t.Fatalf("duplicate accepted")
	}
	if !d.ShouldProcess("") {
		t.Fatalf("empty id dropped")
	}
}

func TestExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	d := New(time.Second, 10)
	d.now = func() time.Time { return now }
	d.ShouldProcess("a")
	now = now.Add(2 * time.Second)
	if !d.ShouldProcess("a") {
		t.Fatalf("expired id should be processed again")
	}
}

func TestMaxEntries(t *testing.T) {
	now := time.Unix(1000, 0)
	d := New(time.Hour, 2)
	d.now = func() time.Time { now = now.Add(time.Millisecond); return now }
	d.ShouldProcess("a")
	d.ShouldProcess("b")
	d.ShouldProcess("c")
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
	if !d.ShouldProcess("a") {
		t.Fatalf("oldest key should have been evicted")
	}
}

func TestShouldProcessPayload(t *testing.T) {
	d := New(time.Minute, 10)
	p := []byte(`{"greenhouse_id":"gh-1"}`)
	if !d.ShouldProcessPayload("greenhouse/snapshot/gh-1", p) {
		t.Fatalf("first payload dropped")
	}
	if d.ShouldProcessPayload("greenhouse/snapshot/gh-1", p) {
		t.Fatalf("duplicate payload accepted")
	}
	if !d.ShouldProcessPayload("greenhouse/snapshot/gh-2", p) {
		t.Fatalf("same payload on another topic dropped")
	}
}
