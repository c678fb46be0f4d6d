package service

type Config struct {
	LedgerUrl               string `envconfig:"LEDGER_URL" required:"true"`
	LedgerWsUrl             string `envconfig:"LEDGER_WS_URL"`
	AccessToken             string `envconfig:"ACCESS_TOKEN" required:"true"`
	LogFilePath             string `envconfig:"LOG_FILE_PATH"`
	SentryDSN               string `envconfig:"SENTRY_DSN"`
	HTTPTimeoutSeconds      int    `envconfig:"HTTP_TIMEOUT" default:"30"`
	RefreshIntervalSeconds  int    `envconfig:"REFRESH_INTERVAL" default:"30"` // safety-net poll
	ReconnectBackoffSeconds int    `envconfig:"RECONNECT_BACKOFF" default:"3"`
}
