package app_test

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/artpar/qrng/adapters/random"
	"github.com/artpar/qrng/app"
)

func TestChoice(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"0", "a"}, // "00" = 0
		{"f", "a"}, // "ff" = 255, 255%3 = 0
		{"1", "c"}, // "11" = 17, 17%3 = 2
		{"2", "b"}, // "22" = 34, 34%3 = 1
	}

	for _, tt := range tests {
		g := newGenerator(t, 100, random.NewFake().WithPattern(tt.pattern))

		got, err := app.Choice(context.Background(), g, []string{"a", "b", "c"})
		if err != nil {
			t.Fatalf("Choice error: %v", err)
		}
		if got != tt.want {
			t.Errorf("pattern %q: Choice = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestChoice_Empty(t *testing.T) {
	g := newGenerator(t, 100, random.NewFake())

	if _, err := app.Choice(context.Background(), g, []int(nil)); !errors.Is(err, app.ErrEmptySequence) {
		t.Errorf("error = %v, want ErrEmptySequence", err)
	}
}

func TestShuffle_IsPermutation(t *testing.T) {
	for _, pattern := range []string{"0", "f", "7", "0123456789abcdef", "c3"} {
		t.Run(pattern, func(t *testing.T) {
			g := newGenerator(t, 100, random.NewFake().WithPattern(pattern))
			in := []int{1, 2, 3}

			out, err := app.Shuffle(context.Background(), g, in)
			if err != nil {
				t.Fatalf("Shuffle error: %v", err)
			}
			if len(out) != 3 {
				t.Fatalf("len = %d, want 3", len(out))
			}

			sorted := append([]int(nil), out...)
			sort.Ints(sorted)
			if !reflect.DeepEqual(sorted, []int{1, 2, 3}) {
				t.Errorf("Shuffle = %v, not a permutation of [1 2 3]", out)
			}
			if !reflect.DeepEqual(in, []int{1, 2, 3}) {
				t.Errorf("input modified: %v", in)
			}
		})
	}
}

func TestShuffle_DrawOrder(t *testing.T) {
	// Every draw is "00": always take the first remaining element.
	g := newGenerator(t, 100, random.NewFake().WithPattern("0"))

	out, err := app.Shuffle(context.Background(), g, []string{"x", "y", "z"})
	if err != nil {
		t.Fatalf("Shuffle error: %v", err)
	}
	if !reflect.DeepEqual(out, []string{"x", "y", "z"}) {
		t.Errorf("Shuffle = %v, want [x y z]", out)
	}
}

func TestShuffle_Empty(t *testing.T) {
	g := newGenerator(t, 100, random.NewFake())

	out, err := app.Shuffle(context.Background(), g, []int{})
	if err != nil || len(out) != 0 {
		t.Errorf("Shuffle(empty) = %v, %v", out, err)
	}
}
