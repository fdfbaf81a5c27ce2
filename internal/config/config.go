package config

import (
	"errors"
	"log/slog"

	"github.com/spf13/viper"
)

type Config struct {
	Server      Server
	Database    Database
	Redis       Redis
	JWT         JWT
	Mail        Mail
	Attachments Attachments
}

type Server struct {
	Port        string
	Environment string
	BaseURL     string
}

type Database struct {
	DSN string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type JWT struct {
	Secret      string
	ExpiryHours int
}

type Mail struct {
	MailgunDomain string
	MailgunAPIKey string
	Sender        string
	SupportEmail  string
}

type Attachments struct {
	Dir string
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		slog.Error("Unable to unmarshal config", "err", err)
		return nil, err
	}
	return &c, nil
}
