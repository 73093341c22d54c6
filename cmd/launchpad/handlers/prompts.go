package handlers

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/imamik/launchpad/internal/deployment"
)

func confirmPrompt(ctx context.Context, title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).RunWithContext(ctx)
	return ok, err
}

// contactForm asks for the registrant contact of a domain purchase.
func contactForm(ctx context.Context) (*deployment.Contact, error) {
	var c deployment.Contact
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("First name").Value(&c.FirstName).Validate(required),
			huh.NewInput().Title("Last name").Value(&c.LastName).Validate(required),
			huh.NewInput().Title("Email").Value(&c.Email).Validate(validateEmail),
			huh.NewInput().Title("Phone").Description("International format, e.g. +49.3012345678").Value(&c.Phone).Validate(required),
			huh.NewInput().Title("Organization (Optional)").Value(&c.Organization),
		).Title("Registrant"),
		huh.NewGroup(
			huh.NewInput().Title("Address").Value(&c.Address).Validate(required),
			huh.NewInput().Title("City").Value(&c.City).Validate(required),
			huh.NewInput().Title("Postal code").Value(&c.PostalCode).Validate(required),
			huh.NewInput().Title("Country").Description("ISO 3166 code, e.g. DE").Value(&c.Country).Validate(validateCountry),
		).Title("Address"),
	).RunWithContext(ctx)
	if err != nil {
		return nil, err
	}
	c.Country = strings.ToUpper(c.Country)
	return &c, nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.New("not a valid email address")
	}
	return nil
}

func validateCountry(s string) error {
	if len(strings.TrimSpace(s)) != 2 {
		return errors.New("use a two-letter country code")
	}
	return nil
}
