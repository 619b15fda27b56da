package model

import "strings"

// Operator identifies the person whose inbox is being triaged. It is an
// opaque token: the triage core never authenticates it.
type Operator struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Email string `mapstructure:"email" yaml:"email"`
}

// NameToken is the lowercased first word of the operator's name, the
// token other people use to address them ("Sawyer" in "Sawyer, can you...").
func (o Operator) NameToken() string {
	fields := strings.Fields(o.Name)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Domain returns the lowercased domain of the operator's address.
func (o Operator) Domain() string {
	_, domain, ok := strings.Cut(o.Email, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(domain)
}

// Authored reports whether a message with the given sender display name
// and address was written by the operator. Addresses compare
// case-insensitively; display names like "Sawyer (You)" also count.
func (o Operator) Authored(sender, senderEmail string) bool {
	email := strings.ToLower(strings.TrimSpace(senderEmail))
	if o.Email != "" && email == strings.ToLower(strings.TrimSpace(o.Email)) {
		return true
	}
	if token := o.NameToken(); token != "" {
		local, _, _ := strings.Cut(email, "@")
		if strings.Contains(local, token) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(sender), "(you)")
}
