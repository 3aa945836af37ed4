package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"

	"github.com/beanvault/beanvault/internal/domain"
)

// Load reads the YAML config file and fills in defaults.
func Load(path string) (domain.Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return domain.Config{}, err
	}
	defer file.Close()

	var config domain.Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return domain.Config{}, err
	}

	if config.ListenAddr == "" {
		config.ListenAddr = ":8000"
	}
	if config.ServiceName == "" {
		config.ServiceName = "beanvault"
	}
	if config.Auth.TokenTTL == 0 {
		config.Auth.TokenTTL = 24 * time.Hour
	}

	return config, nil
}
