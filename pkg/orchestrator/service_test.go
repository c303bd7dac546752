package orchestrator

import (
	"testing"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/db/models"
)

func TestIsValidTransitionAllowsStateMachineEdges(t *testing.T) {
	cases := []struct {
		from models.RunStatus
		to   models.RunStatus
		want bool
	}{
		{models.RunStatusReady, models.RunStatusRunning, true},
		{models.RunStatusRunning, models.RunStatusSucceeded, true},
		{models.RunStatusRunning, models.RunStatusFailed, true},
		{models.RunStatusRunning, models.RunStatusTimedOut, true},
		{models.RunStatusRunning, models.RunStatusAborted, true},
		{models.RunStatusReady, models.RunStatusSucceeded, false},
		{models.RunStatusSucceeded, models.RunStatusRunning, false},
		{models.RunStatusFailed, models.RunStatusRunning, false},
	}
	for _, c := range cases {
		if got := isValidTransition(c.from, c.to); got != c.want {
			t.Errorf("isValidTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
