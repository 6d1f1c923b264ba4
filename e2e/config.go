package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// CHAT_SERVER_ADDR points the suite at a running server, e.g. "localhost:3001".
	// When empty the suite skips itself.
	ServerAddr string `envconfig:"CHAT_SERVER_ADDR"`
	Room       string `envconfig:"CHAT_ROOM" default:"chat_room"`
	// CHAT_TOKEN is only needed when the server runs with AUTH_SECRET set
	Token string `envconfig:"CHAT_TOKEN"`
	// E2E_DEBUG_JSON allows dumping full frames as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
