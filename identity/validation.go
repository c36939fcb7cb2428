package identity

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/media-admin/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type signInForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// ValidateSignIn checks the sign-in form before anything is sent upstream.
func ValidateSignIn(email, password string) error {
	err := validate.Struct(signInForm{Email: email, Password: password})
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && fieldErrs[0].Field() == "Email" {
		return errors.Validation("Invalid email address", "")
	}
	return errors.Validation("Password is required", "")
}

var passwordRules = []struct {
	re      *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`[A-Z]`), "Password must contain at least one uppercase letter"},
	{regexp.MustCompile(`[a-z]`), "Password must contain at least one lowercase letter"},
	{regexp.MustCompile(`[0-9]`), "Password must contain at least one number"},
	{regexp.MustCompile(`[^A-Za-z0-9]`), "Password must contain at least one symbol"},
}

// ValidateNewPassword applies the user pool password policy locally so the
// challenge is not wasted on a password the pool would reject.
func ValidateNewPassword(password, confirm string) error {
	if len(password) < 8 {
		return errors.Validation("Password must be at least 8 characters long", "")
	}
	for _, rule := range passwordRules {
		if !rule.re.MatchString(password) {
			return errors.Validation(rule.message, "")
		}
	}
	if confirm == "" {
		return errors.Validation("Please confirm your password", "")
	}
	if password != confirm {
		return errors.Validation("Passwords do not match", "")
	}
	return nil
}
