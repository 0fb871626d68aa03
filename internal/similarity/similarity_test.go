package similarity

import (
	"reflect"
	"testing"
)

func TestRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 100},
		{"abc", "", 0},
		{"Inception", "inception", 100},
		{"abcd", "abce", 75},
		{"Inception", "Inceptio", 94},
		{"Inceptoin", "Inceptio", 82},
		{"Брат", "брат 2", 80},
		// 200*1/16 = 12.5 rounds up.
		{"a", "abbbbbbbbbbbbbb", 13},
		{"Ёлки", "ёлки 2", 80},
	}
	for _, c := range cases {
		if got := Ratio(c.a, c.b); got != c.want {
			t.Errorf("Ratio(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
		if got := Ratio(c.b, c.a); got != c.want {
			t.Errorf("Ratio(%q, %q) not symmetric: %d", c.b, c.a, got)
		}
	}
}

func TestTokenSortRatio(t *testing.T) {
	if got := TokenSortRatio("Part II: The Return", "The Return: Part II"); got != 100 {
		t.Fatalf("reordered words = %d, want 100", got)
	}
	if got := TokenSortRatio("!!!", "Inception"); got != 0 {
		t.Fatalf("empty token side = %d, want 0", got)
	}
	if got := TokenSortRatio("Брат-2", "2 брат"); got != 100 {
		t.Fatalf("cyrillic tokens = %d, want 100", got)
	}
	if got := Score("Part II: The Return", "The Return: Part II"); got != 100 {
		t.Fatalf("Score = %d", got)
	}
}

func TestFindSimilar(t *testing.T) {
	titles := []string{"Interstellar", "Inceptoin", "Inception"}
	got := FindSimilar(titles, "Inceptio", 75)
	want := []string{"Inception", "Inceptoin"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FindSimilar = %v, want %v", got, want)
	}
}

func TestFindSimilarExcludesExact(t *testing.T) {
	got := FindSimilar([]string{"Inception", "The Return: Part II"}, "inception", 0)
	for _, title := range got {
		if title == "Inception" {
			t.Fatalf("exact match returned: %v", got)
		}
	}
	got = FindSimilar([]string{"The Return: Part II"}, "Part II: The Return", 50)
	if len(got) != 0 {
		t.Fatalf("token-equal title returned: %v", got)
	}
}

func TestRankStableAndSorted(t *testing.T) {
	got := Rank([]string{"abcx", "zzzz", "abcy", "abcz1"}, "abcz", 50)
	if len(got) != 3 {
		t.Fatalf("Rank = %+v", got)
	}
	if got[0].Title != "abcz1" {
		t.Fatalf("best match = %+v", got[0])
	}
	if got[1].Title != "abcx" || got[2].Title != "abcy" || got[1].Score != got[2].Score {
		t.Fatalf("ties not stable: %+v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("not descending: %+v", got)
		}
	}
}

func TestFindSimilarEmpty(t *testing.T) {
	if got := FindSimilar(nil, "Inception", 75); len(got) != 0 {
		t.Fatalf("FindSimilar(nil) = %v", got)
	}
}
