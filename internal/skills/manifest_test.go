package skills

import (
	"strings"
	"testing"
)

const sampleManifest = `---
name: pdf-tools
description: Extract text and tables from PDF documents.
license: MIT
category: documents
requires_sandbox: true
execution_mode: sandbox
triggers:
  - pdf
  - extract text
sandbox_config:
  image: arlo-pdf:latest
  memory_limit: 512m
  cpu_limit: 1.0
  timeout_seconds: 120
  network_enabled: false
---

# PDF Tools

Run scripts/extract.py against the input file.
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest(sampleManifest)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Name != "pdf-tools" {
		t.Errorf("name = %q, want pdf-tools", m.Name)
	}
	if m.Description != "Extract text and tables from PDF documents." {
		t.Errorf("unexpected description %q", m.Description)
	}
	if m.License != "MIT" || m.Category != "documents" {
		t.Errorf("license/category = %q/%q", m.License, m.Category)
	}
	if !m.RequiresSandbox {
		t.Error("requires_sandbox not parsed")
	}
	if m.PreferredMode != "sandbox" {
		t.Errorf("preferred mode = %q, want sandbox", m.PreferredMode)
	}
	if len(m.Triggers) != 2 || m.Triggers[0] != "pdf" || m.Triggers[1] != "extract text" {
		t.Errorf("triggers = %v", m.Triggers)
	}
	if m.SandboxConfig == nil {
		t.Fatal("sandbox_config not parsed")
	}
	if m.SandboxConfig.Image != "arlo-pdf:latest" {
		t.Errorf("image = %q", m.SandboxConfig.Image)
	}
	if m.SandboxConfig.MemoryLimit != "512m" || m.SandboxConfig.CPULimit != "1.0" {
		t.Errorf("limits = %q/%q", m.SandboxConfig.MemoryLimit, m.SandboxConfig.CPULimit)
	}
	if m.SandboxConfig.TimeoutSeconds != 120 {
		t.Errorf("timeout = %d", m.SandboxConfig.TimeoutSeconds)
	}
	if m.SandboxConfig.NetworkEnabled {
		t.Error("network_enabled should be false")
	}
	if !strings.HasPrefix(m.Body, "# PDF Tools") {
		t.Errorf("body = %q", m.Body)
	}
}

func TestParseManifestMinimal(t *testing.T) {
	m, err := ParseManifest("---\nname: notes\ndescription: Take notes.\n---\nBody here.")
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.RequiresSandbox {
		t.Error("requires_sandbox should default to false")
	}
	if m.PreferredMode != "" {
		t.Errorf("preferred mode should be unset, got %q", m.PreferredMode)
	}
	if m.SandboxConfig != nil {
		t.Error("sandbox config should be nil when absent")
	}
	if m.Body != "Body here." {
		t.Errorf("body = %q", m.Body)
	}
}

func TestParseManifestBoolTokens(t *testing.T) {
	for _, tc := range []struct {
		token string
		want  bool
	}{
		{"true", true}, {"yes", true}, {"1", true}, {"on", true},
		{"false", false}, {"no", false}, {"0", false}, {"off", false},
	} {
		m, err := ParseManifest("---\nname: x\ndescription: y\nrequires_sandbox: " + tc.token + "\n---\n")
		if err != nil {
			t.Fatalf("token %q: %v", tc.token, err)
		}
		if m.RequiresSandbox != tc.want {
			t.Errorf("token %q = %v, want %v", tc.token, m.RequiresSandbox, tc.want)
		}
	}
}

func TestParseManifestErrors(t *testing.T) {
	cases := map[string]string{
		"no front matter":     "name: x\ndescription: y",
		"unclosed":            "---\nname: x\ndescription: y",
		"missing name":        "---\ndescription: y\n---\n",
		"missing description": "---\nname: x\n---\n",
		"bad name chars":      "---\nname: my skill!\ndescription: y\n---\n",
		"long name":           "---\nname: " + strings.Repeat("a", 65) + "\ndescription: y\n---\n",
		"long description":    "---\nname: x\ndescription: " + strings.Repeat("d", 1025) + "\n---\n",
		"bad bool":            "---\nname: x\ndescription: y\nrequires_sandbox: maybe\n---\n",
		"bad mode":            "---\nname: x\ndescription: y\nexecution_mode: hybrid\n---\n",
		"bad timeout":         "---\nname: x\ndescription: y\nsandbox_config:\n  timeout_seconds: soon\n---\n",
		"unknown sandbox key": "---\nname: x\ndescription: y\nsandbox_config:\n  entrypoint: sh\n---\n",
		"stray indentation":   "---\nname: x\ndescription: y\n  orphan: true\n---\n",
	}
	for name, content := range cases {
		if _, err := ParseManifest(content); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseManifestIgnoresUnknownTopLevelKeys(t *testing.T) {
	m, err := ParseManifest("---\nname: x\ndescription: y\nauthor: someone\n---\n")
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Name != "x" {
		t.Errorf("name = %q", m.Name)
	}
}
