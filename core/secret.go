package core

import "strings"

const redacted = "[REDACTED]"

// Credential wraps an API key so it cannot leak through formatting or
// serialization. The core holds it only for the duration of one request.
//
//	cred := NewCredential("AIza...")
//	fmt.Println(cred)        // [REDACTED]
//	fmt.Printf("%#v", cred)  // core.Credential{[REDACTED]}
//	cred.Expose()            // AIza...
type Credential struct {
	value string
}

// NewCredential creates a Credential from a raw key.
func NewCredential(value string) Credential {
	return Credential{value: value}
}

// String implements fmt.Stringer with a redacted placeholder.
func (c Credential) String() string {
	return redacted
}

// GoString implements fmt.GoStringer with a redacted placeholder.
func (c Credential) GoString() string {
	return "core.Credential{" + redacted + "}"
}

// MarshalJSON always encodes the placeholder.
func (c Credential) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// MarshalText always encodes the placeholder, which also covers YAML.
func (c Credential) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Expose returns the raw key. Only transports should call it.
func (c Credential) Expose() string {
	return c.value
}

// IsEmpty reports whether no key is set.
func (c Credential) IsEmpty() bool {
	return c.value == ""
}

// Redact replaces every occurrence of the key in s with the placeholder.
func (c Credential) Redact(s string) string {
	if c.value == "" {
		return s
	}
	return strings.ReplaceAll(s, c.value, redacted)
}
