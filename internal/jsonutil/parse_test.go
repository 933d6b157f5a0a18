package jsonutil

import "testing"

type rcaResult struct {
	Category string `json:"RCA_Category"`
	Reason   string `json:"RCA_Reason"`
}

func TestStripMarkdownFences_JSONFence(t *testing.T) {
	raw := "```json\n{\"RCA_Category\": \"Configuration\"}\n```"
	got := StripMarkdownFences(raw)
	want := `{"RCA_Category": "Configuration"}`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestStripMarkdownFences_NoFence(t *testing.T) {
	raw := `{"a": 1}`
	if got := StripMarkdownFences(raw); got != raw {
		t.Errorf("expected unchanged text, got %q", got)
	}
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	raw := `Here is the analysis you asked for: {"RCA_Category": "Throttling", "RCA_Reason": "API limits"} Hope that helps!`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"RCA_Category": "Throttling", "RCA_Reason": "API limits"}`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExtractJSON_FirstOfTwoObjects(t *testing.T) {
	raw := `{"RCA_Category": "A", "RCA_Reason": "first"} {"RCA_Category": "B", "RCA_Reason": "second"}`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"RCA_Category": "A", "RCA_Reason": "first"}`
	if got != want {
		t.Errorf("expected first object, got %q", got)
	}
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	raw := `{"RCA_Reason": "customer wrote {weird} text"}`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != raw {
		t.Errorf("expected %q, got %q", raw, got)
	}
}

func TestExtractJSON_NoObject(t *testing.T) {
	if _, err := ExtractJSON("the model refused to answer"); err == nil {
		t.Error("expected error for text with no JSON object")
	}
}

func TestRepair_MissingComma(t *testing.T) {
	broken := `{"RCA_Category": "Configuration""RCA_Reason": "missing comma"}`
	got := Repair(broken)
	want := `{"RCA_Category": "Configuration","RCA_Reason": "missing comma"}`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRepair_TrailingComma(t *testing.T) {
	broken := `{"RCA_Category": "Configuration",}`
	got := Repair(broken)
	want := `{"RCA_Category": "Configuration"}`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestParseJSON_FencedWithProse(t *testing.T) {
	raw := "Sure — here you go:\n```json\n{\"RCA_Category\": \"Service Limit\", \"RCA_Reason\": \"quota exhausted\"}\n```"
	got, err := ParseJSON[rcaResult](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Category != "Service Limit" || got.Reason != "quota exhausted" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseJSON_RepairsMissingComma(t *testing.T) {
	raw := `{"RCA_Category": "Networking""RCA_Reason": "security group"}`
	got, err := ParseJSON[rcaResult](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Category != "Networking" {
		t.Errorf("expected Networking, got %q", got.Category)
	}
}

func TestParseJSON_Unparseable(t *testing.T) {
	if _, err := ParseJSON[rcaResult]("I cannot categorize this case."); err == nil {
		t.Error("expected error for unparseable response")
	}
}
