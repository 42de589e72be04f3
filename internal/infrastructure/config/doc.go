// Package config handles loading and validating panel bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading a dotenv file into the environment
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The Home Assistant token should be set via HA_TOKEN, not the config file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	if err := config.LoadEnvFile(".env"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bridge.Endpoint)
package config
