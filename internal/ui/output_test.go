package ui

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newTestOutput(buf *bytes.Buffer) *Output {
	o := NewOutput(buf)
	o.SetFormat(FormatHuman)
	o.SetColorEnabled(false)
	return o
}

func TestTree_HumanIndentsByDepth(t *testing.T) {
	buf := &bytes.Buffer{}
	o := newTestOutput(buf)

	o.Tree([]StackLine{
		{Depth: 0, Branch: "main"},
		{Depth: 1, Branch: "feature-a", Current: true, Annotation: "#42"},
		{Depth: 2, Branch: "feature-b"},
	})

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Tree() produced %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "◉") {
		t.Errorf("current branch line missing marker: %q", lines[1])
	}
	if !strings.Contains(lines[1], "#42") {
		t.Errorf("current branch line missing annotation: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "    ") {
		t.Errorf("depth-2 line not indented: %q", lines[2])
	}
}

func TestTree_JSONMode(t *testing.T) {
	buf := &bytes.Buffer{}
	o := NewOutput(buf)
	o.SetFormat(FormatJSON)

	o.Tree([]StackLine{{Depth: 0, Branch: "main", Current: true}})

	var decoded struct {
		Stack []map[string]interface{} `json:"stack"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, output = %s", err, buf.String())
	}
	if len(decoded.Stack) != 1 {
		t.Fatalf("stack rows = %d, want 1", len(decoded.Stack))
	}
	if decoded.Stack[0]["branch"] != "main" {
		t.Errorf("branch = %v, want main", decoded.Stack[0]["branch"])
	}
}

func TestSuccessErrorWarning_HumanMode(t *testing.T) {
	buf := &bytes.Buffer{}
	o := newTestOutput(buf)

	o.Success("done")
	o.Error("broke")
	o.Warning("careful")

	out := buf.String()
	for _, want := range []string{"✓ done", "✗ broke", "⚠ careful"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
