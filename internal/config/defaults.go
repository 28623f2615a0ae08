package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "test_db",
}

var defaultDelivery = Delivery{
	TrackingMaxDuration: 2 * time.Hour,
	CodePrefix:          "SOMBAGO",
	CodeLength:          6,
	SubscriberBuffer:    32,
	OperationTimeout:    3 * time.Second,
	EvictAfter:          time.Hour,
	JanitorSchedule:     "@every 1m",
}

var defaultKafka = Kafka{
	GroupID:     "service-delivery",
	OrdersTopic: "orders",
	EventsTopic: "delivery-events",
}

var defaultMQTT = MQTT{
	ClientID:          "service-delivery",
	TopicPrefix:       "deliveries",
	GPSLimitPerMinute: 12,
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       10,
	Burst:      20,
	TTL:        10 * time.Minute,
	MaxBuckets: 10000,
}

var defaultDebug = Debug{
	Addr: "127.0.0.1:6060",
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultDelivery returns the default delivery settings.
func DefaultDelivery() Delivery {
	return defaultDelivery
}

// DefaultKafka returns the default Kafka settings (disabled).
func DefaultKafka() Kafka {
	return defaultKafka
}

// DefaultMQTT returns the default MQTT settings (disabled).
func DefaultMQTT() MQTT {
	return defaultMQTT
}

// DefaultRateLimit returns the default HTTP rate limit settings.
func DefaultRateLimit() RateLimit {
	return defaultRateLimit
}

// DefaultDebug returns the default debug listener settings.
func DefaultDebug() Debug {
	return defaultDebug
}
