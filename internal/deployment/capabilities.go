package deployment

import "context"

// App is an application as seen by the deployment platform.
type App struct {
	ID     string
	Name   string
	FQDN   string
	Status string
}

// Platform is the deployment-platform capability.
type Platform interface {
	FindByName(ctx context.Context, name string) (*App, error)
	Create(ctx context.Context, name, fqdn string, env map[string]string) (string, error)
	Update(ctx context.Context, id, fqdn string, env map[string]string) error
	Delete(ctx context.Context, id string) error
	GetStatus(ctx context.Context, id string) (string, error)
	Start(ctx context.Context, id string) (string, error)
}

// Zone is a DNS zone returned by CreateZone.
type Zone struct {
	ID          string
	Nameservers []string
}

// DNSProvider is the DNS capability. UpsertRecord reports created=false when
// an existing record was updated in place; such a record is not owned by
// the run and must not be deleted on rollback.
type DNSProvider interface {
	CreateZone(ctx context.Context, domain string) (*Zone, error)
	UpsertRecord(ctx context.Context, domain, recordType, name, content string) (id string, created bool, err error)
	DeleteRecord(ctx context.Context, zoneID, recordID string) error
	GetZoneStatus(ctx context.Context, domain string) (string, error)
}

// Contact is registrant contact data for a domain purchase.
type Contact struct {
	FirstName    string `yaml:"first_name"`
	LastName     string `yaml:"last_name"`
	Email        string `yaml:"email"`
	Phone        string `yaml:"phone"`
	Address      string `yaml:"address"`
	City         string `yaml:"city"`
	PostalCode   string `yaml:"postal_code"`
	Country      string `yaml:"country"`
	Organization string `yaml:"organization,omitempty"`
}

// Registration is the outcome of a domain purchase.
type Registration struct {
	DomainID string
	OrderID  string
	// Status is "pending", "registered" or "failed".
	Status string
}

// Registrar is the domain-registrar capability. GetOrder lets a resumed run
// learn the outcome of a purchase without issuing it again; an empty orderID
// asks for the latest order for domain and returns ErrNotFound if none exists.
type Registrar interface {
	RegisterDomain(ctx context.Context, domain string, nameservers []string, contact Contact, years int) (*Registration, error)
	GetOrder(ctx context.Context, domain, orderID string) (*Registration, error)
}

// Monitoring is the uptime-monitoring capability.
type Monitoring interface {
	AddMonitor(ctx context.Context, name, url string) (string, error)
	DeleteMonitor(ctx context.Context, id string) error
}

// ZoneLookup is implemented by DNS providers that can resolve the zone
// holding a domain. Records created through a provider without it are
// recorded without a zone and skipped on rollback.
type ZoneLookup interface {
	ZoneID(ctx context.Context, domain string) (string, error)
}

// LogSource is implemented by platforms that expose application logs.
type LogSource interface {
	Logs(ctx context.Context, id string, lines int) ([]string, error)
}
