package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/imamik/launchpad/internal/deployment"
)

// Registration statuses reported through deployment.Registration.
const (
	StatusPending    = "pending"
	StatusRegistered = "registered"
	StatusFailed     = "failed"
)

type registrarContact struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Organization string `json:"organization,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Zip          string `json:"zip"`
	Country      string `json:"country"`
}

type registrarDomain struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// RegisterDomain implements deployment.Registrar.
func (c *Client) RegisterDomain(ctx context.Context, domain string, nameservers []string, contact deployment.Contact, years int) (*deployment.Registration, error) {
	if c.accountID == "" {
		return nil, errors.New("cloudflare account id is required to register a domain")
	}
	if years <= 0 {
		years = 1
	}
	body := map[string]any{
		"name":        domain,
		"years":       years,
		"auto_renew":  true,
		"privacy":     true,
		"nameservers": nameservers,
		"contacts": map[string]registrarContact{
			"registrant": {
				FirstName:    contact.FirstName,
				LastName:     contact.LastName,
				Organization: contact.Organization,
				Email:        contact.Email,
				Phone:        contact.Phone,
				Address:      contact.Address,
				City:         contact.City,
				Zip:          contact.PostalCode,
				Country:      contact.Country,
			},
		},
	}

	var d registrarDomain
	if _, err := c.call(ctx, "register_domain", http.MethodPost, c.registrarPath(""), body, &d); err != nil {
		return nil, fmt.Errorf("register domain %s: %w", domain, err)
	}
	return toRegistration(d), nil
}

// GetOrder implements deployment.Registrar. Cloudflare keeps one registration
// per domain, so orderID is only used to detect a replaced order.
func (c *Client) GetOrder(ctx context.Context, domain, orderID string) (*deployment.Registration, error) {
	if c.accountID == "" {
		return nil, errors.New("cloudflare account id is required to query the registrar")
	}
	var d registrarDomain
	if _, err := c.call(ctx, "get_order", http.MethodGet, c.registrarPath(domain), nil, &d); err != nil {
		return nil, fmt.Errorf("get registration %s: %w", domain, err)
	}
	if d.Name == "" && d.ID == "" {
		return nil, fmt.Errorf("registration %s: %w", domain, deployment.ErrNotFound)
	}
	if orderID != "" && d.OrderID != "" && d.OrderID != orderID {
		return nil, fmt.Errorf("registration %s belongs to order %s, not %s", domain, d.OrderID, orderID)
	}
	return toRegistration(d), nil
}

func (c *Client) registrarPath(domain string) string {
	p := fmt.Sprintf("/accounts/%s/registrar/domains", c.accountID)
	if domain != "" {
		p += "/" + url.PathEscape(domain)
	}
	return p
}

func toRegistration(d registrarDomain) *deployment.Registration {
	orderID := d.OrderID
	if orderID == "" {
		orderID = d.ID
	}
	return &deployment.Registration{
		DomainID: d.ID,
		OrderID:  orderID,
		Status:   registrationStatus(d.Status),
	}
}

func registrationStatus(s string) string {
	switch strings.ToLower(s) {
	case "active", "registered", "complete", "completed":
		return StatusRegistered
	case "failed", "rejected", "cancelled", "canceled":
		return StatusFailed
	}
	return StatusPending
}
