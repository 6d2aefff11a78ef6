package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.HistoryPath == "" {
		cfg.Storage.HistoryPath = "/usr/local/var/sumika/data/db/history.db"
	}
	if cfg.Catalog.Mode == "" {
		cfg.Catalog.Mode = CatalogModeLocal
	}
	if cfg.Catalog.Mode == CatalogModeLocal && cfg.Catalog.DataPath == "" {
		cfg.Catalog.DataPath = "/usr/local/var/sumika/data/properties.json"
	}
	if cfg.Catalog.TimeoutSeconds == 0 {
		cfg.Catalog.TimeoutSeconds = 10
	}
	if cfg.Search.MinPrice == 0 {
		cfg.Search.MinPrice = 500
	}
	if cfg.Search.MaxPrice == 0 {
		cfg.Search.MaxPrice = 50000
	}
	if cfg.Search.DefaultPageSize == 0 {
		cfg.Search.DefaultPageSize = 12
	}
	if cfg.Search.MaxPageSize == 0 {
		cfg.Search.MaxPageSize = 60
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 500
	}
	// Watching only makes sense with a local data file.
	if cfg.Catalog.Mode == CatalogModeRemote && cfg.Watch.Enabled == nil {
		f := false
		cfg.Watch.Enabled = &f
	}
}
