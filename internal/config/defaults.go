package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/rstagree/data/db/runs.db"
	}
	if cfg.Storage.RelationIndexPath == "" {
		cfg.Storage.RelationIndexPath = "/usr/local/var/rstagree/data/indices/relations"
	}
	if cfg.Agreement.DiscussionSweep == "" {
		cfg.Agreement.DiscussionSweep = "shared"
	}
	if cfg.Agreement.Workers == 0 {
		cfg.Agreement.Workers = 4
	}
	if cfg.Corpus.SourcePattern == "" {
		cfg.Corpus.SourcePattern = "*.xml"
	}
	if cfg.Corpus.AnnoSuffix == "" {
		cfg.Corpus.AnnoSuffix = ".rst"
	}
	if cfg.Corpus.AnnotationFormat == "" {
		cfg.Corpus.AnnotationFormat = "auto"
	}
	if cfg.Corpus.IgnoreFile == "" {
		cfg.Corpus.IgnoreFile = ".rstignore"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".rst", ".xml", ".tsv"}
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 500
	}
}
