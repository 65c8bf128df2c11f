// Package secret keeps the device password out of ordinary heap memory and
// out of logs.
package secret

import (
	"strings"

	"github.com/awnumar/memguard"
)

// Credential holds a password sealed in a memguard enclave. Its String
// method returns the redacted form, so a Credential that ends up in a log
// line or error message never leaks the password.
type Credential struct {
	enclave  *memguard.Enclave
	redacted string
}

// NewCredential seals password. The caller's copy of the string cannot be
// wiped, so call this as early as possible and drop the original.
func NewCredential(password string) *Credential {
	c := &Credential{redacted: Redact(password)}
	if password != "" {
		c.enclave = memguard.NewEnclave([]byte(password))
	}
	return c
}

// Reveal decrypts the password for handing to the SSH client or the
// sshpass environment. Keep the result's lifetime short.
func (c *Credential) Reveal() (string, error) {
	if c == nil || c.enclave == nil {
		return "", nil
	}
	buf, err := c.enclave.Open()
	if err != nil {
		return "", err
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}

// Redacted returns the masked form of the password.
func (c *Credential) Redacted() string {
	if c == nil {
		return Redact("")
	}
	return c.redacted
}

func (c *Credential) String() string {
	return c.Redacted()
}

// GoString keeps %#v from dumping the struct.
func (c *Credential) GoString() string {
	return "secret.Credential(" + c.Redacted() + ")"
}

// Redact masks a password for diagnostics. The first and last characters
// stay visible so an operator can tell which password was used:
//
//	""       -> "<empty>"
//	"ab"     -> "**"
//	"secret" -> "s****t"
func Redact(password string) string {
	n := len([]rune(password))
	switch {
	case n == 0:
		return "<empty>"
	case n <= 2:
		return strings.Repeat("*", n)
	}
	r := []rune(password)
	return string(r[0]) + strings.Repeat("*", n-2) + string(r[n-1])
}

// Purge wipes every sealed credential. Call it once on the way out.
func Purge() {
	memguard.Purge()
}
