package repository

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestAccountFilter(t *testing.T) {
	all := accountFilter("acc-1", "")
	if _, ok := all["status"]; ok {
		t.Errorf("empty status should not filter: %v", all)
	}
	parties, ok := all["$or"].([]bson.M)
	if !ok || len(parties) != 2 {
		t.Fatalf("$or = %v", all["$or"])
	}
	if parties[0]["renter_id"] != "acc-1" || parties[1]["owner_id"] != "acc-1" {
		t.Errorf("parties = %v", parties)
	}

	confirmed := accountFilter("acc-1", "Confirmed")
	if confirmed["status"] != "Confirmed" {
		t.Errorf("status = %v, want Confirmed", confirmed["status"])
	}
	if _, ok := confirmed["$or"]; !ok {
		t.Error("status filter dropped the party match")
	}
}
