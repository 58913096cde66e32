package courier

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"courier-dispatch/internal/pkg/errs"
)

// ErrInvalidContact is the validation category of every phone and e-mail error.
var ErrInvalidContact = errs.NewValueIsInvalidError("contact")

var phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// Contact holds the reachability data of a courier.
type Contact struct {
	phone     string
	email     string
	pushToken string
}

// NewContact validates an E.164 phone number and a bare e-mail address. The push token is
// optional and opaque.
func NewContact(phone, email, pushToken string) (Contact, error) {
	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(email)

	if !phonePattern.MatchString(phone) {
		return Contact{}, fmt.Errorf("%w: phone %q is not in E.164 format", ErrInvalidContact, phone)
	}
	if err := validateEmail(email); err != nil {
		return Contact{}, err
	}

	return Contact{
		phone:     phone,
		email:     strings.ToLower(email),
		pushToken: strings.TrimSpace(pushToken),
	}, nil
}

func (c Contact) Phone() string { return c.phone }
func (c Contact) Email() string { return c.email }

// PushToken returns the device token, empty when the courier has no push channel.
func (c Contact) PushToken() string { return c.pushToken }

// IsZero reports whether the contact was never constructed.
func (c Contact) IsZero() bool {
	return c.phone == "" && c.email == ""
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email %q is not a bare address", ErrInvalidContact, email)
	}
	at := strings.LastIndexByte(email, '@')
	if domain := email[at+1:]; !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("%w: email %q has no dotted domain", ErrInvalidContact, email)
	}
	return nil
}
