package config

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

const redacted = "***"

// Dump — действующий конфиг в YAML без секретов, для стартового лога.
func (c *Config) Dump() string {
	cp := *c
	cp.Telegram.AdminIDs = append([]int64(nil), c.Telegram.AdminIDs...)
	cp.Scan.Symbols = append([]string(nil), c.Scan.Symbols...)
	if cp.Telegram.Token != "" {
		cp.Telegram.Token = redacted
	}
	if cp.DB != "" {
		cp.DB = redacted
	}
	if cp.Market.APIKey != "" {
		cp.Market.APIKey = redacted
	}
	if cp.Redis.Password != "" {
		cp.Redis.Password = redacted
	}
	if cp.Webhook.Token != "" {
		cp.Webhook.Token = redacted
	}

	out, err := yaml.Marshal(&cp)
	if err != nil {
		return fmt.Sprintf("<config dump failed: %v>", err)
	}
	return string(out)
}
