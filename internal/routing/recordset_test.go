package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bcchr/detbuilder/internal/types"
)

func TestRecordSet_SetLastWriteWins(t *testing.T) {
	s := NewRecordSet()
	s.Set("e1", "a", "first")
	s.Set("e1", "a", "second")

	rec, ok := s.Get("e1")
	assert.True(t, ok)
	assert.Equal(t, "second", rec["a"])
	assert.Equal(t, "e1", rec.Event())
}

func TestRecordSet_MergeInsertIfAbsent(t *testing.T) {
	s := NewRecordSet()
	s.Set("e1", "a", "piped")
	s.Merge("e1", types.Record{"a": "copied", "b": "copied", types.EventNameField: "other"})

	rec, _ := s.Get("e1")
	assert.Equal(t, "piped", rec["a"])
	assert.Equal(t, "copied", rec["b"])
	assert.Equal(t, "e1", rec.Event())

	// a later Set still overwrites a merged value
	s.Set("e1", "b", "set")
	rec, _ = s.Get("e1")
	assert.Equal(t, "set", rec["b"])
}

func TestRecordSet_OrderAndCopies(t *testing.T) {
	s := NewRecordSet()
	s.Set("e2", "a", "1")
	s.Set("e1", "b", "2")
	s.Set("e2", "c", "3")
	s.SetAll("record_id", "7")

	assert.Equal(t, []string{"e2", "e1"}, s.Events())
	assert.Equal(t, 2, s.Len())

	recs := s.Records()
	assert.Equal(t, []types.Record{
		{types.EventNameField: "e2", "a": "1", "c": "3", "record_id": "7"},
		{types.EventNameField: "e1", "b": "2", "record_id": "7"},
	}, recs)

	recs[0]["a"] = "mutated"
	rec, _ := s.Get("e2")
	assert.Equal(t, "1", rec["a"])
}

func TestRecordSet_IgnoresEventNameWrites(t *testing.T) {
	s := NewRecordSet()
	s.Set("e1", types.EventNameField, "e9")
	rec, _ := s.Get("e1")
	assert.Equal(t, "e1", rec.Event())
}
