package config

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Enabled bool
	Port    string
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Enabled: getEnvBool("SERVER_ENABLED", true),
		Port:    getEnv("PORT", "8080"),
	}
}

func (c ServerConfig) validate() error {
	if c.Enabled && c.Port == "" {
		return invalid("PORT", "must not be empty")
	}
	return nil
}
