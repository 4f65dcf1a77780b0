package config

import "time"

func DefaultConfig() *Config {
	return &Config{
		KeyExpiry:      Duration(150 * time.Second),
		ConnectionMode: ModeUnixSocket,
		UnixSockPath:   "/tmp/fsdb.sock",
		TCPHost:        "127.0.0.1",
		TCPPort:        1273,
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Listen:  ":9090",
				Path:    "/metrics",
			},
			Health: HealthConfig{
				Enabled:       true,
				Listen:        ":8081",
				LivenessPath:  "/healthz",
				ReadinessPath: "/readyz",
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
			},
		},
	}
}
