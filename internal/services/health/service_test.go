package health

import (
	"context"
	"errors"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestStatus(t *testing.T) {
	cases := []struct {
		name string
		db   Pinger
		want Status
	}{
		{"memory", nil, Status{OK: true, Database: "memory"}},
		{"up", pingFunc(func(context.Context) error { return nil }), Status{OK: true, Database: "up"}},
		{"down", pingFunc(func(context.Context) error { return errors.New("refused") }), Status{OK: false, Database: "down"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewService(tc.db).Status(context.Background()); got != tc.want {
				t.Fatalf("Status = %+v, want %+v", got, tc.want)
			}
		})
	}
}
