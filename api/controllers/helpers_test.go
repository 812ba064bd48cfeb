package controllers

import "github.com/angelmondragon/sponsorlens-backend/pkg/config"

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}
