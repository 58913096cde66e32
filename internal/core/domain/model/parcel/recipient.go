package parcel

import (
	"fmt"
	"strings"

	"courier-dispatch/internal/pkg/errs"
)

// ErrInvalidRecipient is the category of recipient validation errors.
var ErrInvalidRecipient = errs.NewValueIsInvalidError("recipient")

// Recipient is the person who receives the package. Phone and e-mail are optional and
// only passed on to notifications.
type Recipient struct {
	name  string
	phone string
	email string
}

// NewRecipient requires a name.
func NewRecipient(name, phone, email string) (Recipient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Recipient{}, fmt.Errorf("%w: name is required", ErrInvalidRecipient)
	}
	email = strings.TrimSpace(email)
	if email != "" && !strings.Contains(email, "@") {
		return Recipient{}, fmt.Errorf("%w: email %q is malformed", ErrInvalidRecipient, email)
	}
	return Recipient{
		name:  name,
		phone: strings.TrimSpace(phone),
		email: strings.ToLower(email),
	}, nil
}

func (r Recipient) Name() string  { return r.name }
func (r Recipient) Phone() string { return r.phone }
func (r Recipient) Email() string { return r.email }

// IsZero reports whether no recipient was given.
func (r Recipient) IsZero() bool {
	return r.name == ""
}
