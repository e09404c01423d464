package model

import (
	"bytes"
	"encoding/json"
)

// PatronResponse is the upstream answer to a patron sign-in.  Error is kept
// raw because the upstream sends either a string or an object.
type PatronResponse struct {
	Data  *PatronData     `json:"data,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

// PatronData holds the identity fields used to fill a booking request.
type PatronData struct {
	Names     []PatronName `json:"names"`
	Emails    []string     `json:"emails,omitempty"`
	Phones    []string     `json:"phones,omitempty"`
	BlockData *BlockData   `json:"blockData,omitempty"`
}

// PatronName is one name record of a patron.
type PatronName struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// BlockData signals that the patron account is restricted.  Result "ok"
// means no restriction applies.
type BlockData struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// HasError reports whether the response carries a top-level error field.
// An explicit null counts: only an absent field means no error.
func (p *PatronResponse) HasError() bool {
	return len(bytes.TrimSpace(p.Error)) > 0
}

// ErrorMessage renders the top-level error as text.  String errors are
// returned unquoted, null and empty strings as "", anything else as raw
// JSON.
func (p *PatronResponse) ErrorMessage() string {
	e := bytes.TrimSpace(p.Error)
	if len(e) == 0 || bytes.Equal(e, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Error, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(p.Error))
}

// Patron is the signed-in patron record carried by a booking flow.
type Patron struct {
	Barcode   string `json:"barcode"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// PatronFrom flattens the upstream data; missing email or phone become "".
func PatronFrom(barcode string, d *PatronData) Patron {
	p := Patron{Barcode: barcode}
	if d == nil {
		return p
	}
	if len(d.Names) > 0 {
		p.FirstName = d.Names[0].FirstName
		p.LastName = d.Names[0].LastName
	}
	if len(d.Emails) > 0 {
		p.Email = d.Emails[0]
	}
	if len(d.Phones) > 0 {
		p.Phone = d.Phones[0]
	}
	return p
}
