package agents

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeLister struct {
	calls  int
	err    error
	agents []Agent
}

func (f *fakeLister) ListAgents(ctx context.Context) ([]Agent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.agents, nil
}

func TestListHitsCacheWithinTTL(t *testing.T) {
	lister := &fakeLister{agents: []Agent{{ID: 5, Name: "Analyst"}}}
	directory := NewDirectory(lister, 5, WithDirectoryTTL(time.Minute))

	first := directory.List(context.Background())
	second := directory.List(context.Background())

	if lister.calls != 1 {
		t.Fatalf("fetched %d times, want 1", lister.calls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].Name != "Analyst" {
		t.Fatalf("unexpected listings: %v / %v", first, second)
	}
}

func TestForceRefreshBypassesCache(t *testing.T) {
	lister := &fakeLister{agents: []Agent{{ID: 5, Name: "Analyst"}}}
	directory := NewDirectory(lister, 5, WithDirectoryTTL(time.Minute))

	directory.List(context.Background())
	directory.ForceRefresh(context.Background())

	if lister.calls != 2 {
		t.Fatalf("fetched %d times, want 2", lister.calls)
	}
}

func TestListFallsBackToBuiltinsWhenUnreachable(t *testing.T) {
	lister := &fakeLister{err: errors.New("gateway timeout")}
	directory := NewDirectory(lister, 1)

	agents := directory.List(context.Background())
	if len(agents) != 3 {
		t.Fatalf("got %d fallback agents, want 3", len(agents))
	}
	if agents[0].Name != "Project Manager" {
		t.Fatalf("unexpected first fallback agent: %q", agents[0].Name)
	}
}

func TestRefreshFailureKeepsLastGoodListing(t *testing.T) {
	lister := &fakeLister{agents: []Agent{{ID: 9, Name: "Archivist"}}}
	directory := NewDirectory(lister, 9, WithDirectoryTTL(time.Minute))

	directory.List(context.Background())

	lister.err = errors.New("gateway timeout")
	agents := directory.ForceRefresh(context.Background())

	if len(agents) != 1 || agents[0].Name != "Archivist" {
		t.Fatalf("got %v, want the previously fetched listing", agents)
	}
}

func TestNameResolvesKnownAndUnknownAgents(t *testing.T) {
	lister := &fakeLister{agents: []Agent{{ID: 9, Name: "Archivist"}}}
	directory := NewDirectory(lister, 9)

	if got := directory.Name(context.Background(), 9); got != "Archivist" {
		t.Fatalf("Name(9) = %q, want Archivist", got)
	}
	if got := directory.Name(context.Background(), 42); got != "Agent 42" {
		t.Fatalf("Name(42) = %q, want placeholder", got)
	}
}

func TestCurrentAgentSwitching(t *testing.T) {
	directory := NewDirectory(&fakeLister{}, 3)

	if directory.Current() != 3 {
		t.Fatalf("Current() = %d, want the initial default", directory.Current())
	}
	directory.SetCurrent(8)
	if directory.Current() != 8 {
		t.Fatalf("Current() = %d after switch, want 8", directory.Current())
	}
}
