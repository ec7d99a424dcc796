package klc

import (
	"strings"
	"testing"
)

func TestResultCounts(t *testing.T) {
	r := NewResult("S4.1", "pin checks")
	if r.HasOutput() {
		t.Fatal("fresh result should have no output")
	}
	r.Errorf("pin %s is off grid", "3")
	r.Extra("move it to 2.54mm")
	r.Warning("pin name is lowercase")
	r.Info("5 pins checked")

	if got := r.ErrorCount(); got != 1 {
		t.Errorf("ErrorCount() = %d, want 1", got)
	}
	if got := r.WarningCount(); got != 1 {
		t.Errorf("WarningCount() = %d, want 1", got)
	}
	if !r.HasErrors() || !r.HasWarnings() || !r.HasOutput() {
		t.Error("flags should all be set")
	}
	if got := r.Entries[0].Extras[0]; got != "move it to 2.54mm" {
		t.Errorf("extra = %q", got)
	}
}

func TestResultDemote(t *testing.T) {
	r := NewResult("S3.1", "origin")
	r.Error("not centered")
	r.Warning("slightly off")
	r.Demote()

	if r.HasErrors() || r.HasWarnings() {
		t.Error("demoted result should count no violations")
	}
	for _, e := range r.Entries {
		if e.Severity != SeverityInfo {
			t.Errorf("entry %q severity = %v, want info", e.Message, e.Severity)
		}
	}
}

func TestRuleURL(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"S4.1", "https://klc.kicad.org/symbol/s4/s4.1/"},
		{"F6.2", "https://klc.kicad.org/footprint/f6/f6.2/"},
		{"G1.11", "https://klc.kicad.org/general/g1/g1.11/"},
		{"M5.1", "https://klc.kicad.org/model/m5/m5.1/"},
		{"EC01", "(extended check)"},
	}
	for _, tc := range cases {
		if got := RuleURL(tc.name); got != tc.want {
			t.Errorf("RuleURL(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestIsValidName(t *testing.T) {
	cases := []struct {
		name       string
		allowTilde bool
		want       bool
	}{
		{"LM358", false, true},
		{"ATmega328P-AU", false, true},
		{"R_Small", false, true},
		{"+5V", false, true},
		{"Crystal_3.2x1.5mm", false, true},
		{"~GND", true, true},
		{"~GND", false, false},
		{"GND~flag", true, false},
		{"bad name", false, false},
		{"caf\u00e9", false, false},
	}
	for _, tc := range cases {
		if got := IsValidName(tc.name, tc.allowTilde); got != tc.want {
			t.Errorf("IsValidName(%q, %v) = %v, want %v", tc.name, tc.allowTilde, got, tc.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(1, 5); got != ExitErrors {
		t.Errorf("ExitCode(1, 5) = %d, want %d", got, ExitErrors)
	}
	if got := ExitCode(0, 2); got != ExitWarnings {
		t.Errorf("ExitCode(0, 2) = %d, want %d", got, ExitWarnings)
	}
	if got := ExitCode(0, 0); got != ExitPass {
		t.Errorf("ExitCode(0, 0) = %d, want %d", got, ExitPass)
	}
}

func TestReportMetrics(t *testing.T) {
	report := &Report{
		Library: "Device",
		Entities: []*EntityResult{
			{Library: "Device", Name: "R", Results: []*Result{
				func() *Result {
					r := NewResult("S3.1", "")
					r.Error("bad")
					r.Warning("iffy")
					return r
				}(),
			}},
			{Library: "Device", Name: "C", Results: []*Result{NewResult("S3.1", "")}},
		},
	}
	metrics := strings.Join(report.Metrics(), "\n")
	for _, want := range []string{
		"Device.R.warnings 1",
		"Device.R.errors 1",
		"Device.C.warnings 0",
		"Device.C.errors 0",
		"Device.total_errors 1",
		"Device.total_warnings 1",
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("metrics missing %q:\n%s", want, metrics)
		}
	}
}
