package config

// DefaultAddr is the default listen address for the HTTP API.
const DefaultAddr = "127.0.0.1:8080"

// DefaultConnectionsTable is the default connections table name.
const DefaultConnectionsTable = "connections"

// DefaultKeysTable is the default API key table name.
const DefaultKeysTable = "keys"

// DefaultStoreType selects the pure-Go SQLite backend.
const DefaultStoreType = "sqlite"

// DefaultBusType selects the in-process change-event bus.
const DefaultBusType = "memory"

// DefaultKafkaGroup is the Kafka consumer group for the change feed.
const DefaultKafkaGroup = "compcontrol"

// DefaultKeepaliveIntervalSec is the ping sweep schedule. One minute keeps
// idle sockets ahead of the common gateway idle timeout.
const DefaultKeepaliveIntervalSec = 60

// DefaultWarmupIntervalSec is the warm-up probe schedule.
const DefaultWarmupIntervalSec = 180

// DefaultDeliveryTimeoutMs is the per-target push deadline.
const DefaultDeliveryTimeoutMs = 2000

// DefaultDeliveryConcurrency bounds the delivery fan-out.
const DefaultDeliveryConcurrency = 8

// DefaultKeyIssuePerMinute rate-limits key issuance.
const DefaultKeyIssuePerMinute = 10

// DefaultAllowedCommands is the command allow-list.
// These are the only commands a caller may dispatch to its agents.
var DefaultAllowedCommands = []string{"sleep", "hibernate", "shutdown", "lock"}
