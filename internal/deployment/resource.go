package deployment

// ResourceType names a kind of remote object a run can create.
type ResourceType string

// Resource types.
const (
	ResourcePlatformApp ResourceType = "platform_app"
	ResourceDNSRecord   ResourceType = "dns_record"
	ResourceMonitor     ResourceType = "monitor"
)

// Resource is a durable note that a specific remote object was created,
// carrying exactly what is needed to delete it later. The set of
// implementations is closed: PlatformApp, DNSRecord and Monitor.
type Resource interface {
	Type() ResourceType
	ID() string
	resource()
}

// PlatformApp is an application on the deployment platform.
type PlatformApp struct {
	AppID string `yaml:"app_id"`
	Name  string `yaml:"name"`
}

// DNSRecord is a record in a DNS zone. ZoneID may be empty when the zone
// could not be determined; rollback then skips the record.
type DNSRecord struct {
	ZoneID     string `yaml:"zone_id"`
	RecordID   string `yaml:"record_id"`
	Name       string `yaml:"name"`
	RecordType string `yaml:"type"`
}

// Monitor is an uptime monitor.
type Monitor struct {
	MonitorID string `yaml:"monitor_id"`
	Name      string `yaml:"name"`
}

// Type implements Resource.
func (PlatformApp) Type() ResourceType { return ResourcePlatformApp }

// ID implements Resource.
func (r PlatformApp) ID() string { return r.AppID }

func (PlatformApp) resource() {}

// Type implements Resource.
func (DNSRecord) Type() ResourceType { return ResourceDNSRecord }

// ID implements Resource.
func (r DNSRecord) ID() string { return r.RecordID }

func (DNSRecord) resource() {}

// Type implements Resource.
func (Monitor) Type() ResourceType { return ResourceMonitor }

// ID implements Resource.
func (r Monitor) ID() string { return r.MonitorID }

func (Monitor) resource() {}
