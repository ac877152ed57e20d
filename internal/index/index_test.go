package index

import (
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	idA = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	idB = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
	idC = uuid.MustParse("cccccccc-0000-0000-0000-000000000003")
)

func ticks(n int64) time.Time {
	ts, err := DeserializeTimestamp(SerializeTimestamp(time.Time{}.Add(time.Duration(n) * 100)))
	if err != nil {
		panic(err)
	}
	return ts
}

func sample(t *testing.T) *Index {
	t.Helper()
	idx := New()
	require.NoError(t, idx.AddSave("G", idA, ticks(100)))
	require.NoError(t, idx.AddSave("G", idB, ticks(200)))
	require.NoError(t, idx.AddSave("Medal of Honor", idC, ticks(50)))
	return idx
}

func TestSerialize_Format(t *testing.T) {
	idx := sample(t)
	want := "G\taaaaaaaa-0000-0000-0000-000000000001,100\tbbbbbbbb-0000-0000-0000-000000000002,200\n" +
		"Medal of Honor\tcccccccc-0000-0000-0000-000000000003,50\n"
	assert.Equal(t, want, string(idx.Serialize()))
}

func TestRoundTrip(t *testing.T) {
	empty := New()

	withEmptyGame := New()
	require.NoError(t, withEmptyGame.AddSave("Solo", idA, ticks(1)))
	_, err := withEmptyGame.DeleteSaveAt("Solo", 0)
	require.NoError(t, err)
	require.NoError(t, withEmptyGame.AddSave("Other", idB, time.Time{}))

	for name, idx := range map[string]*Index{
		"empty":           empty,
		"multi game":      sample(t),
		"zero-save games": withEmptyGame,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Deserialize(idx.Serialize())
			require.NoError(t, err)
			assert.True(t, idx.Equal(got))
			assert.Equal(t, idx.Games(), got.Games())
		})
	}
}

func TestDeserialize_EmptyGameLine(t *testing.T) {
	idx, err := Deserialize([]byte("Solo\nG\t" + idA.String() + ",0\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Solo", "G"}, idx.Games())
	assert.Empty(t, idx.SavesFor("Solo"))

	e, err := idx.SaveAt("G", 0)
	require.NoError(t, err)
	assert.True(t, e.Timestamp.IsZero())
}

func TestDeserialize_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing comma", "G\t" + idA.String() + "\n"},
		{"bad uuid", "G\tnot-a-uuid,5\n"},
		{"bad ticks", "G\t" + idA.String() + ",soon\n"},
		{"negative ticks", "G\t" + idA.String() + ",-5\n"},
		{"empty game", "\t" + idA.String() + ",5\n"},
		{"empty token", "G\t\n"},
		{"duplicate game", "G\nG\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Parse(strings.NewReader(tt.input))
			require.Nil(t, idx)
			require.ErrorIs(t, err, common.ErrParse)

			var pe *common.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, common.IndexBlobName, pe.Source)
		})
	}
}

func TestAddSave(t *testing.T) {
	idx := New()
	require.NoError(t, idx.AddSave("G", idA, ticks(3)))
	require.NoError(t, idx.AddSave("G", idB, ticks(1)))

	// append order, not timestamp order
	want := []models.SavegameEntry{{ID: idA, Timestamp: ticks(3)}, {ID: idB, Timestamp: ticks(1)}}
	if diff := cmp.Diff(want, idx.SavesFor("G")); diff != "" {
		t.Fatalf("saves mismatch (-want +got):\n%s", diff)
	}

	require.Error(t, idx.AddSave("", idC, ticks(1)))
	require.Error(t, idx.AddSave("bad\tname", idC, ticks(1)))
}

func TestDeleteSaveAt(t *testing.T) {
	idx := sample(t)

	removed, err := idx.DeleteSaveAt("G", 0)
	require.NoError(t, err)
	assert.Equal(t, idA, removed.ID)
	assert.Equal(t, []models.SavegameEntry{{ID: idB, Timestamp: ticks(200)}}, idx.SavesFor("G"))

	for _, i := range []int{-1, 1, 5} {
		_, err := idx.DeleteSaveAt("G", i)
		require.ErrorIs(t, err, common.ErrIndexOutOfRange, "position %d", i)
	}
	_, err = idx.DeleteSaveAt("unknown", 0)
	require.ErrorIs(t, err, common.ErrIndexOutOfRange)
}

func TestDeleteSaveByID(t *testing.T) {
	idx := sample(t)

	removed, err := idx.DeleteSaveByID("G", idB)
	require.NoError(t, err)
	assert.Equal(t, idB, removed.ID)

	_, err = idx.DeleteSaveByID("G", idB)
	require.ErrorIs(t, err, common.ErrEntryNotFound)
}

func TestDeleteSaveByID_DuplicateIsSurfaced(t *testing.T) {
	idx, err := Deserialize([]byte("G\t" + idA.String() + ",1\t" + idA.String() + ",2\n"))
	require.NoError(t, err)

	_, err = idx.DeleteSaveByID("G", idA)
	require.ErrorIs(t, err, common.ErrEntryNotFound)
	require.ErrorIs(t, err, common.ErrDuplicateEntryID)
	assert.Len(t, idx.SavesFor("G"), 2, "nothing removed")
}

func TestDeleteGame(t *testing.T) {
	idx := sample(t)

	removed := idx.DeleteGame("G")
	assert.Len(t, removed, 2)
	assert.Equal(t, []string{"Medal of Honor"}, idx.Games())
	assert.False(t, idx.HasGame("G"))

	removed = idx.DeleteGame("G")
	assert.NotNil(t, removed)
	assert.Empty(t, removed)
}

func TestSavesFor_IsACopy(t *testing.T) {
	idx := sample(t)

	saves := idx.SavesFor("G")
	saves[0].ID = idC
	assert.Equal(t, idA, idx.SavesFor("G")[0].ID)

	assert.NotNil(t, idx.SavesFor("nobody"))
	assert.Empty(t, idx.SavesFor("nobody"))
}

func TestEntriesAndLen(t *testing.T) {
	idx := sample(t)

	var seen []string
	idx.Entries(func(game string, pos int, e models.SavegameEntry) {
		seen = append(seen, game+":"+e.BlobName())
	})
	assert.Equal(t, []string{
		"G:" + idA.String() + ".zip",
		"G:" + idB.String() + ".zip",
		"Medal of Honor:" + idC.String() + ".zip",
	}, seen)
	assert.Equal(t, 3, idx.Len())
}

func TestEqual(t *testing.T) {
	a, b := sample(t), sample(t)
	assert.True(t, a.Equal(b))

	require.NoError(t, b.AddSave("G", idC, ticks(1)))
	assert.False(t, a.Equal(b))

	c := New()
	require.NoError(t, c.AddSave("Medal of Honor", idC, ticks(50)))
	require.NoError(t, c.AddSave("G", idA, ticks(100)))
	require.NoError(t, c.AddSave("G", idB, ticks(200)))
	assert.False(t, a.Equal(c), "game order matters")
}
