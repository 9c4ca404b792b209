// Package config loads gfnkit configuration.
//
// Values come from a YAML file, then a .env file, then GFNKIT_* environment
// variables, later sources overriding earlier ones. Environment keys map to
// nested config keys by splitting on underscores, so GFNKIT_STORAGE_BASE_PATH
// sets storage.base_path.
//
//	cfg, err := config.Load(config.WithConfigFile("gfnkit.yml"))
package config
