package commands

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestClassifyCommand(t *testing.T) {
	t.Setenv("AI_PROVIDER", "none")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"classify", "--subject", "Server outage", "--description", "hosting server is down, dns fails"})
	if err := Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var resp struct {
		Classification struct {
			Category string `json:"category"`
			Priority string `json:"priority"`
		} `json:"classification"`
		Escalation struct {
			RequiresEscalation bool `json:"requires_escalation"`
		} `json:"escalation"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if resp.Classification.Category != "hosting" || resp.Classification.Priority != "critical" || !resp.Escalation.RequiresEscalation {
		t.Fatalf("unexpected output %+v", resp)
	}
}

func TestEstimateRequiresTicketID(t *testing.T) {
	rootCmd.SetArgs([]string{"estimate"})
	if err := Execute(); err == nil {
		t.Fatalf("expected missing argument error")
	}
}
