// Package validation checks credential input before anything is sent to the identity service.
package validation

import (
	"regexp"
	"strings"

	"github.com/Lllllllleong/scanshare/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	validate        *validator.Validate
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

// Email checks that email is a syntactically valid address.
func Email(email string) error {
	if strings.TrimSpace(email) == "" {
		return &models.ValidationError{Field: "email", Message: "must not be empty"}
	}
	if err := validate.Var(email, "email"); err != nil {
		return &models.ValidationError{Field: "email", Message: "is not a valid address"}
	}
	return nil
}

// Username checks length and the allowed character set.
func Username(username string) error {
	if err := validate.Var(username, "required,min=3,max=30"); err != nil {
		return &models.ValidationError{Field: "username", Message: "must be between 3 and 30 characters"}
	}
	if err := validate.Var(username, "username"); err != nil {
		return &models.ValidationError{Field: "username", Message: "may only contain letters, digits, '_', '.' and '-'"}
	}
	return nil
}

// Password checks the minimum length accepted by the identity service.
func Password(password string) error {
	if err := validate.Var(password, "required,min=6"); err != nil {
		return &models.ValidationError{Field: "password", Message: "must be at least 6 characters"}
	}
	if strings.TrimSpace(password) != password {
		return &models.ValidationError{Field: "password", Message: "must not start or end with whitespace"}
	}
	return nil
}

// PasswordConfirmation checks that both entries match.
func PasswordConfirmation(password, confirmation string) error {
	if password != confirmation {
		return &models.ValidationError{Field: "passwordConfirmation", Message: "does not match password"}
	}
	return nil
}

// SignUp runs every check a registration form needs, in form order.
func SignUp(email, username, password, confirmation string) error {
	if err := Email(email); err != nil {
		return err
	}
	if err := Username(username); err != nil {
		return err
	}
	if err := Password(password); err != nil {
		return err
	}
	return PasswordConfirmation(password, confirmation)
}
