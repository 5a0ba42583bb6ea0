package main

import "time"

type Config struct {
	BadgerFilepath   string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath    string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel         string        `env:"LOG_LEVEL,required=true"`
	Host             string        `env:"HOST,default=localhost"`
	Port             int           `env:"PORT,default=8080"`
	TokenSecret      string        `env:"TOKEN_SECRET,required=true"`
	TokenDuration    time.Duration `env:"TOKEN_DURATION,default=24h"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH,default=5000"`
	PublicBaseURL    string        `env:"PUBLIC_BASE_URL,default=http://localhost:8080"`
	SMTPHost         string        `env:"SMTP_HOST"`
	SMTPPort         int           `env:"SMTP_PORT,default=587"`
	SMTPUsername     string        `env:"SMTP_USERNAME"`
	SMTPPassword     string        `env:"SMTP_PASSWORD"`
	SMTPSender       string        `env:"SMTP_SENDER"`
}
