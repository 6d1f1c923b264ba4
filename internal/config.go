package internal

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=3001" validate:"gt=0,lte=65535"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	RoomCapacity         int           `env:"ROOM_CAPACITY,default=50" validate:"gt=0"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=15" validate:"gte=0"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=512" validate:"gt=0"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024" validate:"gt=0"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"gt=0"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`

	// An empty URL switches classification to the built-in keyword screener.
	ClassifierURL     string        `env:"CLASSIFIER_URL"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT,default=5s"`

	BadgerFilepath  string `env:"BADGER_FILEPATH,default=./data/badger"`
	BlugeFilepath   string `env:"BLUGE_FILEPATH,default=./data/bluge"`
	ArchivePageSize int    `env:"ARCHIVE_PAGE_SIZE,default=50" validate:"gt=0"`

	// An empty secret leaves the server open, no token check on join.
	AuthSecret        string        `env:"AUTH_SECRET"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	// Argon2id cost settings for stored credentials, OWASP baseline.
	ArgonMemoryKiB   int `env:"ARGON_MEMORY_KIB,default=65536" validate:"gt=0"`
	ArgonIterations  int `env:"ARGON_ITERATIONS,default=3" validate:"gt=0"`
	ArgonParallelism int `env:"ARGON_PARALLELISM,default=2" validate:"gt=0,lte=255"`
}

func (c Config) Validate() error {
	return validate.Struct(c)
}
