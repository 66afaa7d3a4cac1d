package schema

import (
	"testing"
	"time"
)

func TestContract_EveryFieldHasAccessor(t *testing.T) {
	for _, f := range TrafficStops.Fields {
		if !Known(f.Name) {
			t.Fatalf("field %q has no accessor", f.Name)
		}
	}
	if got, want := len(accessors), len(TrafficStops.Fields); got != want {
		t.Fatalf("accessors=%d, contract fields=%d", got, want)
	}
}

func TestContract_KeyNames(t *testing.T) {
	keys := TrafficStops.KeyNames()
	if len(keys) != 2 || keys[0] != "seq_id" || keys[1] != "charge" {
		t.Fatalf("KeyNames() = %v, want [seq_id charge]", keys)
	}
}

func TestStop_ValuesProjectsNullsAsNil(t *testing.T) {
	lat := 39.1
	agency := "MCP"
	ts := time.Date(2020, 5, 1, 14, 30, 0, 0, time.UTC)
	s := Stop{
		SeqID:        "abc",
		StopDatetime: &ts,
		Agency:       &agency,
		Latitude:     &lat,
		Gender:       "F",
		Fatal:        true,
	}

	got := s.Values([]string{"seq_id", "agency", "charge", "latitude", "longitude", "fatal", "gender", "stop_datetime", "nope"})

	if got[0] != "abc" {
		t.Fatalf("seq_id: got %v", got[0])
	}
	if got[1] != "MCP" {
		t.Fatalf("agency: got %v", got[1])
	}
	if got[2] != nil {
		t.Fatalf("charge: got %#v, want untyped nil", got[2])
	}
	if got[3] != 39.1 {
		t.Fatalf("latitude: got %v", got[3])
	}
	if got[4] != nil {
		t.Fatalf("longitude: got %#v, want untyped nil", got[4])
	}
	if got[5] != true {
		t.Fatalf("fatal: got %v", got[5])
	}
	if got[6] != "F" {
		t.Fatalf("gender: got %v", got[6])
	}
	if got[7] != ts {
		t.Fatalf("stop_datetime: got %v", got[7])
	}
	if got[8] != nil {
		t.Fatalf("unknown column: got %v", got[8])
	}
}
