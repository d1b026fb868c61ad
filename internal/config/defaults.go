package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = "/usr/local/var/chajda/data/nlk_concepts.sqlite"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/chajda/data/indices/labels.bleve"
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 100
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 10000
	}
	if cfg.Suggest.MaxDistance == 0 {
		cfg.Suggest.MaxDistance = 2
	}
	if cfg.Suggest.MaxSuggestions == 0 {
		cfg.Suggest.MaxSuggestions = 5
	}
}
