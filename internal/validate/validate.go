// Package validate rejects bad input synchronously, before it can reach
// storage.
package validate

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"slidebank/internal/model"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ProjectName checks a project name.
func ProjectName(name string) error {
	return validation.Validate(name,
		validation.Required.Error("project name must not be empty"),
		validation.Length(1, 200),
	)
}

// KeywordText checks a keyword label.
func KeywordText(text string) error {
	return validation.Validate(text,
		validation.Required.Error("keyword text must not be empty"),
		validation.Length(1, 200),
	)
}

// Category checks a keyword category.
func Category(c model.KeywordCategory) error {
	return validation.Validate(string(c),
		validation.Required,
		validation.In(
			string(model.CategoryTopic),
			string(model.CategoryTitle),
			string(model.CategoryName),
		).Error("category must be topic, title, or name"),
	)
}

// Color checks a display color in #rrggbb form.
func Color(c string) error {
	return validation.Validate(c,
		validation.Required,
		validation.Match(colorPattern).Error("color must look like #1a2b3c"),
	)
}

// AssemblyName checks an assembly name.
func AssemblyName(name string) error {
	return validation.Validate(name,
		validation.Required.Error("assembly name must not be empty"),
		validation.Length(1, 200),
	)
}
