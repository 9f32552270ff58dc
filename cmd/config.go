package main

import (
	"fmt"
	"time"
)

type Config struct {
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	QueueCapacity     int           `env:"QUEUE_CAPACITY,required=true"`
	PublicTopic       string        `env:"PUBLIC_TOPIC,default=public"`
	TokenSecret       string        `env:"TOKEN_SECRET,required=true"`
	TokenIssuer       string        `env:"TOKEN_ISSUER,default=chat-gateway"`
	TokenDuration     time.Duration `env:"TOKEN_DURATION,required=true"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	PageSize          *int          `env:"PAGE_SIZE"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
