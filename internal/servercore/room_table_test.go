package servercore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alxayo/c2w/internal/wire"
)

// TestRoomEqualTable is a table test over Room.Equal covering Main-vs-Main,
// same movie room, different movie IDs, and different titles at the same
// ID — the ID/title pair must both match for two movie rooms to be equal.
func TestRoomEqualTable(t *testing.T) {
	cases := []struct {
		name string
		a, b Room
		want bool
	}{
		{"main equals main", Main, Main, true},
		{"same movie room", Movie(1, "Matrix"), Movie(1, "Matrix"), true},
		{"main vs movie", Main, Movie(1, "Matrix"), false},
		{"different ids same title", Movie(1, "Matrix"), Movie(2, "Matrix"), false},
		{"same id different title", Movie(1, "Matrix"), Movie(1, "Inception"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Equal(tc.b))
		})
	}
}

// TestMemDirectoryGetMovieByTitleTable exercises lookup against a fixed
// catalog across hits, a miss, and the empty-title edge case.
func TestMemDirectoryGetMovieByTitleTable(t *testing.T) {
	catalog := []wire.Movie{
		{ID: 1, Title: "Matrix"},
		{ID: 2, Title: "Inception"},
		{ID: 3, Title: "Arrival"},
	}
	d := NewMemDirectory(catalog)

	cases := []struct {
		title   string
		wantID  uint8
		wantHit bool
	}{
		{"Matrix", 1, true},
		{"Inception", 2, true},
		{"Arrival", 3, true},
		{"Nope", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			m, ok := d.GetMovieByTitle(tc.title)
			require.Equal(t, tc.wantHit, ok)
			if tc.wantHit {
				assert.Equal(t, tc.wantID, m.ID)
				assert.Equal(t, tc.title, m.Title)
			}
		})
	}
}
