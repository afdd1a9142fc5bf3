package main

import (
	"testing"
	"time"
)

func TestZoneDatabaseEmbedded(t *testing.T) {
	t.Setenv("ZONEINFO", t.TempDir())

	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	if loc.String() != "America/Chicago" {
		t.Fatalf("unexpected location %v", loc)
	}
}
