package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "ADFLOW_"

type Application struct {
	Host     string   `koanf:"host"`
	Google   Google   `koanf:"google"`
	Database Database `koanf:"db"`
}

type Google struct {
	ClientId       string        `koanf:"clientid"`
	ClientSecret   string        `koanf:"clientsecret"`
	WebhookUrl     string        `koanf:"webhookurl"`
	RequestTimeout time.Duration `koanf:"requesttimeout"`
}

// Configured reports whether the deployment carries Google OAuth client credentials.
func (g Google) Configured() bool {
	return g.ClientId != "" && g.ClientSecret != ""
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
	// MaxConns bounds the pgx pool shared by API requests and webhook-driven syncs.
	MaxConns int32 `koanf:"maxconns"`
}

func defaults() Application {
	return Application{
		Host: "http://localhost:3000",
		Google: Google{
			RequestTimeout: 15 * time.Second,
		},
		Database: Database{
			Host:     "localhost",
			Port:     5432,
			User:     "adflow",
			Pass:     "",
			Name:     "adflow",
			Schema:   "adflow",
			MaxConns: 10,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	if app.Google.WebhookUrl == "" {
		app.Google.WebhookUrl = strings.TrimSuffix(app.Host, "/") + "/api/integrations/google/webhook"
	}
	if app.Google.RequestTimeout <= 0 {
		app.Google.RequestTimeout = defaults().Google.RequestTimeout
	}

	return app, nil
}
