package main

import (
	"strings"
	"testing"
)

func TestRunWipe_RequiresYes(t *testing.T) {
	wipeYes = false
	wipeNamespace = "staging"

	err := runWipe(wipeCmd, nil)
	if err == nil {
		t.Fatal("expected refusal without --yes")
	}
	if !strings.Contains(err.Error(), "--yes") {
		t.Errorf("error should mention --yes, got %v", err)
	}
}
