package auth

import (
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var errWeakPassword = fmt.Errorf("password needs upper, lower, digit and special characters")

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=64"`
	Password string `json:"password" validate:"required,min=12,max=72"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
	Address  string `json:"address" validate:"omitempty,max=256"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if !isPasswordComplex(req.Password) {
		return errWeakPassword
	}
	return nil
}

func ValidateLogin(req LoginRequest) error {
	return validate.Struct(req)
}

func isPasswordComplex(s string) bool {
	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}
