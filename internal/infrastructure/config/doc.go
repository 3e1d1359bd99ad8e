// Package config handles loading and validating assetsync configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading an optional dotenv file for local secrets
//   - Overriding with ASSETSYNC_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - Registry, tracking board and GIS credentials should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Registry.Site)
package config
