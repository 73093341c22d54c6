// Package testing provides fakes, mocks and builders shared by package tests.
//
//   - CallLog: ordered record of every capability call across fakes
//   - FakePlatform, FakeDNS, FakeRegistrar, FakeMonitoring: stateful
//     in-memory capabilities with injectable errors
//   - MockPlatform: testify mock for exact argument expectations
//   - SpecBuilder: fluent builder for deployment specs
//
// Usage:
//
//	log := lptest.NewCallLog()
//	platform := lptest.NewFakePlatform(log)
//	platform.Fail("create", errors.New("quota exceeded"))
package testing
