package config

import "time"

var defaultDB = DB{
	Host: "localhost",
	Port: "5432",
	User: "user",
	Pass: "password",
	Name: "delivery",
}

var defaultSimulation = Simulation{
	Warmup:           5 * time.Second,
	TickInterval:     3 * time.Second,
	AssignDelay:      10 * time.Second,
	CompleteDelay:    15 * time.Second,
	OrderProbability: 0.6,
	OperationTimeout: 5 * time.Second,
}

const defaultHTTPPort = 8080

var defaultLog = Log{
	Level:  "info",
	Format: "json",
}

const defaultKafkaTopic = "delivery.lifecycle"

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultSimulation returns the default simulation timings.
func DefaultSimulation() Simulation {
	return defaultSimulation
}

// DefaultHTTPPort returns the default status server port.
func DefaultHTTPPort() int {
	return defaultHTTPPort
}

// DefaultLog returns the default logging settings.
func DefaultLog() Log {
	return defaultLog
}

// Default returns the full default configuration.
func Default() Config {
	return Config{
		DB:         DefaultDB(),
		Simulation: DefaultSimulation(),
		HTTP:       HTTP{Port: defaultHTTPPort},
		Log:        DefaultLog(),
		Kafka:      Kafka{Topic: defaultKafkaTopic},
	}
}
