package models

import "testing"

func TestQueueForType(t *testing.T) {
	tests := []struct {
		taskType string
		want     string
	}{
		{TaskCompletionGeneration, QueueLLM},
		{TaskChatProcessing, QueueChat},
		{TaskSessionCleanup, QueueGeneral},
		{TaskNotification, QueueGeneral},
		{"something-else", QueueGeneral},
	}

	for _, tc := range tests {
		if got := QueueForType(tc.taskType); got != tc.want {
			t.Errorf("QueueForType(%q) = %q, want %q", tc.taskType, got, tc.want)
		}
	}
}
