package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/okian/rtmonitor/internal/domain/linelist"
)

func sampleRecords() ([]*linelist.Record, linelist.Report) {
	return linelist.Normalize([]linelist.Raw{
		{ID: "1", Region: "valle del cauca", Municipality: "cali", Care: "Casa"},
		{ID: "2", Region: "Antioquia", Municipality: "Medellín", Care: "Recuperado"},
		{ID: "3", Region: "Antioquia", Municipality: "Envigado", Care: "Hospital"},
		{ID: "4", Region: "ANTIOQUIA", Municipality: "medellín", Care: "Fallecido"},
		{ID: "5", Region: "", Municipality: "Bogotá", Care: "Casa"},
		{ID: "6", Region: "Cundinamarca", Municipality: "", Care: "Casa"},
	})
}

func TestMemoryStore_CurrentBeforePublish(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx)
	defer store.Close()

	if _, err := store.Current(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestMemoryStore_Publish(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2020, time.May, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(ctx, WithClock(func() time.Time { return at }))
	defer store.Close()

	records, report := sampleRecords()
	snap, err := store.Publish(ctx, "file", records, report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.ID == "" {
		t.Error("expected a snapshot id")
	}
	if !snap.LoadedAt.Equal(at) {
		t.Errorf("expected load time %v, got %v", at, snap.LoadedAt)
	}
	if snap.Len() != 6 {
		t.Errorf("expected 6 records, got %d", snap.Len())
	}

	cur, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur != snap {
		t.Error("expected Current to return the published snapshot")
	}

	next, err := store.Publish(ctx, "file", records[:2], report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cur, _ = store.Current(ctx)
	if cur != next || cur.ID == snap.ID {
		t.Error("expected the second publish to replace the first")
	}
	if snap.Len() != 6 {
		t.Error("expected the old snapshot to be left intact")
	}
}

func TestSnapshot_Catalog(t *testing.T) {
	records, report := sampleRecords()
	snap := NewSnapshot("test", records, report, time.Now())

	wantRegions := []string{"Antioquia", "Cundinamarca", "Valle Del Cauca"}
	if got := snap.Regions(); !reflect.DeepEqual(got, wantRegions) {
		t.Errorf("expected regions %v, got %v", wantRegions, got)
	}

	got, err := snap.Municipalities("Antioquia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"Envigado", "Medellín"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	got, err = snap.Municipalities("Cundinamarca")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no municipalities, got %v", got)
	}

	all, err := snap.Municipalities("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"Cali", "Envigado", "Medellín"}; !reflect.DeepEqual(all, want) {
		t.Errorf("expected %v, got %v", want, all)
	}

	if _, err := snap.Municipalities("Amazonas"); !errors.Is(err, ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}

	regions := snap.Regions()
	regions[0] = "mutated"
	if snap.Regions()[0] != "Antioquia" {
		t.Error("expected Regions to return a copy")
	}
}

func TestMemoryStore_Close(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx, WithMetricsUpdateInterval(time.Millisecond))
	records, report := sampleRecords()
	if _, err := store.Publish(ctx, "file", records, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if err := store.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if _, err := store.Publish(ctx, "file", records, report); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
	if _, err := store.Current(ctx); err != nil {
		t.Errorf("expected the last snapshot to stay readable, got %v", err)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore(context.Background())
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records, report := sampleRecords()
	if _, err := store.Publish(ctx, "file", records, report); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryStore_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx)
	defer store.Close()

	records, report := sampleRecords()
	if _, err := store.Publish(ctx, "file", records, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap, err := store.Current(ctx)
				if err != nil {
					errs <- err
					return
				}
				if n := snap.Len(); n != 6 && n != 3 {
					errs <- fmt.Errorf("torn snapshot with %d records", n)
					return
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		n := 6
		if i%2 == 0 {
			n = 3
		}
		if _, err := store.Publish(ctx, "file", records[:n], report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func BenchmarkMemoryStore_Current(b *testing.B) {
	ctx := context.Background()
	store := NewMemoryStore(ctx)
	defer store.Close()
	records, report := sampleRecords()
	if _, err := store.Publish(ctx, "file", records, report); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := store.Current(ctx); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkNewSnapshot(b *testing.B) {
	raws := make([]linelist.Raw, 10_000)
	for i := range raws {
		raws[i] = linelist.Raw{
			Region:       fmt.Sprintf("Region %d", i%33),
			Municipality: fmt.Sprintf("Town %d", i%1100),
			Care:         "Casa",
		}
	}
	records, report := linelist.Normalize(raws)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewSnapshot("bench", records, report, time.Now())
	}
}
