package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "menuservice/internal/errors"
)

// messages are keyed by "<Struct>.<json field>.<tag>".
var messages = map[string]string{
	"MenuItem.name.required":        "Please add a name for the menu item",
	"MenuItem.name.max":             "Name cannot be more than 50 characters",
	"MenuItem.description.required": "Please add a description",
	"MenuItem.description.max":      "Description cannot be more than 500 characters",
	"MenuItem.price.required":       "Please add a price",
	"MenuItem.price.gte":            "Price must be at least 0",
	"MenuItem.category.required":    "Please add a category",
	"MenuItem.category.oneof":       "Category must be one of: appetizer, main, dessert, beverage, special, breakfast, lunch, dinner",
	"MenuItem.ingredients.required": "Please add at least one ingredient",
	"MenuItem.ingredients.min":      "Please add at least one ingredient",
	"MenuItem.dietaryTags.oneof":    "Dietary tags must be among: vegetarian, vegan, gluten-free, dairy-free, nut-free, spicy",
	"MenuItem.preparationTime.gte":  "Preparation time must be at least 0 minutes",
	"MenuItem.calories.gte":         "Calories must be at least 0",
	"Review.title.required":         "Please add a title for the review",
	"Review.title.max":              "Title cannot be more than 100 characters",
	"Review.text.required":          "Please add some text",
	"Review.rating.required":        "Please add a rating between 1 and 10",
	"Review.rating.min":             "Please add a rating between 1 and 10",
	"Review.rating.max":             "Please add a rating between 1 and 10",

	"RegisterRequest.name.required":                  "Please add a name",
	"RegisterRequest.email.required":                 "Please add an email",
	"RegisterRequest.email.email":                    "Please add a valid email",
	"RegisterRequest.password.required":              "Please add a password",
	"RegisterRequest.password.min":                   "Password must be at least 6 characters",
	"LoginRequest.email.required":                    "Please provide an email and password",
	"LoginRequest.email.email":                       "Please add a valid email",
	"LoginRequest.password.required":                 "Please provide an email and password",
	"UpdatePasswordRequest.currentPassword.required": "Please provide your current password",
	"UpdatePasswordRequest.newPassword.required":     "Please provide a new password",
	"UpdatePasswordRequest.newPassword.min":          "Password must be at least 6 characters",
}

// Validator checks documents against their schema constraints and reports
// violations as a single ValidationFailed error.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that names fields by their json tag.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate returns nil or a ValidationFailed error listing every violation.
func (v *Validator) Validate(doc any) error {
	err := v.validate.Struct(doc)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	seen := map[string]bool{}
	var msgs []string
	for _, fe := range fieldErrs {
		msg := message(fe)
		if !seen[msg] {
			seen[msg] = true
			msgs = append(msgs, msg)
		}
	}
	return apperrors.Validation(strings.Join(msgs, ", "))
}

func message(fe validator.FieldError) string {
	// Drop slice indexes so every element of a list shares one message.
	ns, _, _ := strings.Cut(fe.Namespace(), "[")
	if msg, ok := messages[ns+"."+fe.Tag()]; ok {
		return msg
	}
	return fe.Error()
}
