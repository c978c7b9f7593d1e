package store

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestCommitmentIDCarriesCreationTime(t *testing.T) {
	created := time.Unix(1_700_000_000, 123_000_000).UTC()
	id, err := ulid.Parse(commitmentID(created))
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}
	if got := ulid.Time(id.Time()); !got.Equal(created) {
		t.Fatalf("expected %v, got %v", created, got)
	}

	earlier := commitmentID(created.Add(-time.Hour))
	if earlier >= id.String() {
		t.Fatalf("expected %s to sort before %s", earlier, id)
	}

	if _, err := ulid.Parse(commitmentID(time.Time{})); err != nil {
		t.Fatalf("zero time: %v", err)
	}
}
