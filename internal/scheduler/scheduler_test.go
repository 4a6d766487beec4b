package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_InvalidSpec(t *testing.T) {
	if _, err := New("not a cron", func(context.Context) error { return nil }, nil); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := New("@hourly", nil, nil); err == nil {
		t.Fatal("expected error for nil job")
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		spec  string
		after time.Time
		want  time.Time
	}{
		{
			spec:  "0 */6 * * *",
			after: time.Date(2026, 1, 1, 1, 30, 0, 0, time.UTC),
			want:  time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC),
		},
		{
			spec:  "@hourly",
			after: time.Date(2026, 1, 1, 1, 30, 0, 0, time.UTC),
			want:  time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC),
		},
		{
			spec:  "30 4 * * 1",
			after: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), // Wednesday
			want:  time.Date(2026, 3, 9, 4, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			s, err := New(tt.spec, func(context.Context) error { return nil }, nil)
			if err != nil {
				t.Fatal(err)
			}
			if got := s.Next(tt.after); !got.Equal(tt.want) {
				t.Errorf("Next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRun_FiresUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var runs atomic.Int32
	job := func(context.Context) error {
		if runs.Add(1) >= 2 {
			cancel()
		}
		return errors.New("job errors do not stop the loop")
	}

	// Every second.
	s, err := New("* * * * * * *", job, nil)
	if err != nil {
		t.Fatal(err)
	}

	err = s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want context.Canceled", err)
	}
	if n := runs.Load(); n < 2 {
		t.Errorf("job ran %d times, want >= 2", n)
	}
}

func TestRun_NoNextRun(t *testing.T) {
	s, err := New("0 0 1 1 * 2020", func(context.Context) error { return nil }, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, ErrNoNextRun) {
		t.Errorf("err = %v, want ErrNoNextRun", err)
	}
}
