package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/imamik/launchpad/internal/deployment"
)

// CallLog records capability calls in order, shared across fakes so tests
// can assert on cross-system ordering.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// NewCallLog creates an empty log.
func NewCallLog() *CallLog {
	return &CallLog{}
}

func (l *CallLog) add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

// Calls returns every recorded call.
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// Count returns how many calls start with prefix.
func (l *CallLog) Count(prefix string) int {
	n := 0
	for _, c := range l.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Matching returns the calls that start with prefix.
func (l *CallLog) Matching(prefix string) []string {
	var out []string
	for _, c := range l.Calls() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the log.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

// errorSet holds injected errors keyed by operation, optionally suffixed
// with ":<id>" to target one object.
type errorSet struct {
	mu   sync.Mutex
	errs map[string]error
}

func (e *errorSet) Fail(key string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.errs == nil {
		e.errs = make(map[string]error)
	}
	e.errs[key] = err
}

func (e *errorSet) Clear(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.errs, key)
}

func (e *errorSet) err(op, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.errs[op+":"+id]; ok {
		return err
	}
	return e.errs[op]
}

// sequence returns items in order and then repeats the last one.
type sequence struct {
	items []string
	idx   int
}

func (s *sequence) next(fallback string) string {
	if len(s.items) == 0 {
		return fallback
	}
	v := s.items[s.idx]
	if s.idx < len(s.items)-1 {
		s.idx++
	}
	return v
}

// FakePlatform is an in-memory deployment.Platform.
type FakePlatform struct {
	errorSet
	log *CallLog

	mu       sync.Mutex
	apps     map[string]*deployment.App
	nextID   int
	nextDep  int
	statuses sequence
	Env      map[string]map[string]string
}

// NewFakePlatform creates an empty platform recording into log.
func NewFakePlatform(log *CallLog) *FakePlatform {
	return &FakePlatform{
		log:  log,
		apps: make(map[string]*deployment.App),
		Env:  make(map[string]map[string]string),
	}
}

// SetStatuses makes GetStatus return these values in order, repeating the
// last one. The default status is "running".
func (f *FakePlatform) SetStatuses(statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = sequence{items: statuses}
}

// AddApp seeds an existing application.
func (f *FakePlatform) AddApp(app deployment.App) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := app
	f.apps[app.ID] = &a
}

// Apps returns the ids of the current applications.
func (f *FakePlatform) Apps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.apps))
	for id := range f.apps {
		ids = append(ids, id)
	}
	return ids
}

// FindByName implements deployment.Platform.
func (f *FakePlatform) FindByName(_ context.Context, name string) (*deployment.App, error) {
	f.log.add("platform.find(%s)", name)
	if err := f.err("find", name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.apps {
		if a.Name == name {
			found := *a
			return &found, nil
		}
	}
	return nil, nil
}

// Create implements deployment.Platform.
func (f *FakePlatform) Create(_ context.Context, name, fqdn string, env map[string]string) (string, error) {
	f.log.add("platform.create(%s,%s)", name, fqdn)
	if err := f.err("create", name); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("app-%d", f.nextID)
	f.apps[id] = &deployment.App{ID: id, Name: name, FQDN: fqdn}
	f.Env[id] = env
	return id, nil
}

// Update implements deployment.Platform.
func (f *FakePlatform) Update(_ context.Context, id, fqdn string, env map[string]string) error {
	f.log.add("platform.update(%s)", id)
	if err := f.err("update", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[id]
	if !ok {
		return deployment.ErrNotFound
	}
	a.FQDN = fqdn
	f.Env[id] = env
	return nil
}

// Delete implements deployment.Platform.
func (f *FakePlatform) Delete(_ context.Context, id string) error {
	f.log.add("platform.delete(%s)", id)
	if err := f.err("delete", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.apps[id]; !ok {
		return deployment.ErrNotFound
	}
	delete(f.apps, id)
	return nil
}

// GetStatus implements deployment.Platform.
func (f *FakePlatform) GetStatus(_ context.Context, id string) (string, error) {
	f.log.add("platform.status(%s)", id)
	if err := f.err("status", id); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses.next("running"), nil
}

// Start implements deployment.Platform.
func (f *FakePlatform) Start(_ context.Context, id string) (string, error) {
	f.log.add("platform.start(%s)", id)
	if err := f.err("start", id); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextDep++
	return fmt.Sprintf("dep-%d", f.nextDep), nil
}

// FakeDNS is an in-memory deployment.DNSProvider.
type FakeDNS struct {
	errorSet
	log *CallLog

	mu       sync.Mutex
	zones    map[string]*deployment.Zone
	records  map[string]string // domain|type|name -> record id
	nextID   int
	statuses sequence
}

// NewFakeDNS creates an empty provider recording into log.
func NewFakeDNS(log *CallLog) *FakeDNS {
	return &FakeDNS{
		log:     log,
		zones:   make(map[string]*deployment.Zone),
		records: make(map[string]string),
	}
}

// SetZoneStatuses makes GetZoneStatus return these values in order. The
// default status is "active".
func (f *FakeDNS) SetZoneStatuses(statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = sequence{items: statuses}
}

// RecordCount returns the number of live records.
func (f *FakeDNS) RecordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// CreateZone implements deployment.DNSProvider.
func (f *FakeDNS) CreateZone(_ context.Context, domain string) (*deployment.Zone, error) {
	f.log.add("dns.create_zone(%s)", domain)
	if err := f.err("create_zone", domain); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if z, ok := f.zones[domain]; ok {
		return z, nil
	}
	z := &deployment.Zone{
		ID:          "zone-" + strings.ReplaceAll(domain, ".", "-"),
		Nameservers: []string{"ada.ns.example.net", "bob.ns.example.net"},
	}
	f.zones[domain] = z
	return z, nil
}

// SeedRecord adds a record that exists before any run, as if created by
// the zone owner.
func (f *FakeDNS) SeedRecord(domain, recordType, name, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[domain+"|"+recordType+"|"+name] = id
}

// HasRecord reports whether a record with id is live.
func (f *FakeDNS) HasRecord(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rid := range f.records {
		if rid == id {
			return true
		}
	}
	return false
}

// UpsertRecord implements deployment.DNSProvider. An existing record is
// updated in place and reported with created=false.
func (f *FakeDNS) UpsertRecord(_ context.Context, domain, recordType, name, _ string) (string, bool, error) {
	f.log.add("dns.upsert(%s,%s)", recordType, name)
	if err := f.err("upsert", name); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain + "|" + recordType + "|" + name
	if id, ok := f.records[key]; ok {
		return id, false, nil
	}
	f.nextID++
	id := fmt.Sprintf("rec-%d", f.nextID)
	f.records[key] = id
	return id, true, nil
}

// DeleteRecord implements deployment.DNSProvider.
func (f *FakeDNS) DeleteRecord(_ context.Context, zoneID, recordID string) error {
	f.log.add("dns.delete(%s,%s)", zoneID, recordID)
	if err := f.err("delete", recordID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, id := range f.records {
		if id == recordID {
			delete(f.records, k)
		}
	}
	return nil
}

// GetZoneStatus implements deployment.DNSProvider.
func (f *FakeDNS) GetZoneStatus(_ context.Context, domain string) (string, error) {
	f.log.add("dns.zone_status(%s)", domain)
	if err := f.err("zone_status", domain); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses.next("active"), nil
}

// FakeRegistrar is an in-memory deployment.Registrar.
type FakeRegistrar struct {
	errorSet
	log *CallLog

	mu       sync.Mutex
	nextID   int
	orders   map[string]*deployment.Registration
	byDomain map[string]string
	statuses sequence
}

// NewFakeRegistrar creates a registrar recording into log.
func NewFakeRegistrar(log *CallLog) *FakeRegistrar {
	return &FakeRegistrar{
		log:      log,
		orders:   make(map[string]*deployment.Registration),
		byDomain: make(map[string]string),
	}
}

// SetOrderStatuses makes RegisterDomain and GetOrder report these statuses
// in order. The default status is "registered".
func (f *FakeRegistrar) SetOrderStatuses(statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = sequence{items: statuses}
}

// RegisterDomain implements deployment.Registrar.
func (f *FakeRegistrar) RegisterDomain(_ context.Context, domain string, _ []string, _ deployment.Contact, years int) (*deployment.Registration, error) {
	f.log.add("registrar.register(%s,%d)", domain, years)
	if err := f.err("register", domain); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	reg := &deployment.Registration{
		DomainID: fmt.Sprintf("dom-%d", f.nextID),
		OrderID:  fmt.Sprintf("order-%d", f.nextID),
		Status:   f.statuses.next("registered"),
	}
	f.orders[reg.OrderID] = reg
	f.byDomain[domain] = reg.OrderID
	out := *reg
	return &out, nil
}

// GetOrder implements deployment.Registrar. An empty orderID looks the
// order up by domain.
func (f *FakeRegistrar) GetOrder(_ context.Context, domain, orderID string) (*deployment.Registration, error) {
	f.log.add("registrar.get_order(%s)", orderID)
	if err := f.err("get_order", domain); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if orderID == "" {
		orderID = f.byDomain[domain]
	}
	reg, ok := f.orders[orderID]
	if !ok {
		return nil, deployment.ErrNotFound
	}
	reg.Status = f.statuses.next(reg.Status)
	out := *reg
	return &out, nil
}

// SeedOrder registers an order as if RegisterDomain had been called by an
// earlier process.
func (f *FakeRegistrar) SeedOrder(domain string, reg deployment.Registration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := reg
	f.orders[reg.OrderID] = &r
	f.byDomain[domain] = reg.OrderID
}

// FakeMonitoring is an in-memory deployment.Monitoring.
type FakeMonitoring struct {
	errorSet
	log    *CallLog
	mu     sync.Mutex
	nextID int
}

// NewFakeMonitoring creates a monitoring fake recording into log.
func NewFakeMonitoring(log *CallLog) *FakeMonitoring {
	return &FakeMonitoring{log: log}
}

// AddMonitor implements deployment.Monitoring.
func (f *FakeMonitoring) AddMonitor(_ context.Context, name, url string) (string, error) {
	f.log.add("monitoring.add(%s,%s)", name, url)
	if err := f.err("add", name); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("mon-%d", f.nextID), nil
}

// DeleteMonitor implements deployment.Monitoring.
func (f *FakeMonitoring) DeleteMonitor(_ context.Context, id string) error {
	f.log.add("monitoring.delete(%s)", id)
	return f.err("delete", id)
}

// ZoneID implements deployment.ZoneLookup.
func (f *FakeDNS) ZoneID(_ context.Context, domain string) (string, error) {
	f.log.add("dns.zone_id(%s)", domain)
	if err := f.err("zone_id", domain); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if z, ok := f.zones[domain]; ok {
		return z.ID, nil
	}
	return "zone-" + strings.ReplaceAll(domain, ".", "-"), nil
}

// Logs implements deployment.LogSource.
func (f *FakePlatform) Logs(_ context.Context, id string, lines int) ([]string, error) {
	f.log.add("platform.logs(%s)", id)
	if err := f.err("logs", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.apps[id]; !ok {
		return nil, deployment.ErrNotFound
	}
	out := []string{"starting " + id, id + " listening on :8080"}
	if lines > 0 && lines < len(out) {
		out = out[len(out)-lines:]
	}
	return out, nil
}
