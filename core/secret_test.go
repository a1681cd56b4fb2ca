package core

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestCredentialFormatting(t *testing.T) {
	cred := NewCredential("AIzaSyTestKey123")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"String", cred.String(), "[REDACTED]"},
		{"GoString", cred.GoString(), "core.Credential{[REDACTED]}"},
		{"Sprintf %v", fmt.Sprintf("%v", cred), "[REDACTED]"},
		{"Sprintf %s", fmt.Sprintf("%s", cred), "[REDACTED]"},
		{"Sprintf %#v", fmt.Sprintf("%#v", cred), "core.Credential{[REDACTED]}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestCredentialJSONInStruct(t *testing.T) {
	payload := struct {
		Key Credential `json:"key"`
	}{Key: NewCredential("AIzaSyTestKey123")}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(data) != `{"key":"[REDACTED]"}` {
		t.Errorf("json.Marshal() = %s", data)
	}
}

func TestCredentialMarshalText(t *testing.T) {
	got, err := NewCredential("AIzaSyTestKey123").MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(got) != "[REDACTED]" {
		t.Errorf("MarshalText() = %s", got)
	}
}

func TestCredentialExposeAndEmpty(t *testing.T) {
	cred := NewCredential("AIzaSyTestKey123")
	if cred.Expose() != "AIzaSyTestKey123" {
		t.Errorf("Expose() = %q", cred.Expose())
	}
	if cred.IsEmpty() {
		t.Error("IsEmpty() = true for non-empty credential")
	}
	if !(Credential{}).IsEmpty() {
		t.Error("zero Credential should be empty")
	}
}

func TestCredentialRedact(t *testing.T) {
	cred := NewCredential("AIzaSyTestKey123")

	got := cred.Redact(`Post "https://example.test/v1beta?key=AIzaSyTestKey123": dial tcp: timeout`)
	want := `Post "https://example.test/v1beta?key=[REDACTED]": dial tcp: timeout`
	if got != want {
		t.Errorf("Redact() = %q, want %q", got, want)
	}

	if (Credential{}).Redact("unchanged") != "unchanged" {
		t.Error("empty credential should not alter text")
	}
}
