package types

// Config is one account configuration loaded from a *.config.yaml file.
type Config struct {
	// Meta information for the configuration
	Meta struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description,omitempty"`
		Enabled     bool   `yaml:"enabled"`
		Template    string `yaml:"template,omitempty"` // Name of the template to use
	} `yaml:"meta"`

	Account struct {
		ID        string     `yaml:"id"`
		Providers []Provider `yaml:"providers"`
	} `yaml:"account"`

	Ingest struct {
		SaveUnmatched bool `yaml:"save_unmatched"`
		FetchTimeout  int  `yaml:"fetch_timeout"`  // minutes, per provider
		ProgressEvery int  `yaml:"progress_every"` // messages between progress updates
		ProgressTTL   int  `yaml:"progress_ttl"`   // minutes a finished run's progress is kept
	} `yaml:"ingest"`

	Store struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"store"`

	Logging struct {
		Level         string `yaml:"level"`
		Format        string `yaml:"format"`
		IncludeCaller bool   `yaml:"include_caller"`
	} `yaml:"logging"`

	Scheduling struct {
		Enabled         bool   `yaml:"enabled"`
		FrequencyEvery  string `yaml:"frequency_every"` // minute, hour, day, week, month
		FrequencyAmount int    `yaml:"frequency_amount"`
		StartNow        bool   `yaml:"start_now"`
		StartAt         string `yaml:"start_at"` // UTC DateTime
		StopAt          string `yaml:"stop_at"`  // UTC DateTime
	} `yaml:"scheduling"`
}

// Provider is one configured mailbox source for the account.
type Provider struct {
	Name          string `yaml:"name"`
	Protocol      string `yaml:"protocol"` // imap (default) or pop3
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	TLSServerName string `yaml:"tls_server_name,omitempty"`
}
