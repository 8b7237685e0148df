package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:              "info",
			DefaultStore:          "store1",
			DefaultLanguage:       "en",
			DefaultProvider:       "ollama",
			MaxConcurrentMessages: 5,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 3000,
		},
		Providers: map[string]ProviderConfig{
			"ollama": {
				Enabled:      true,
				APIBase:      "http://localhost:11434",
				DefaultModel: "llama3.1:8b",
			},
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "Markdown",
			},
			CLI: CLIConfig{
				Enabled: true,
			},
		},
		Analytics: AnalyticsConfig{
			DBPath:     "~/.retailbot/analytics.db",
			MaxStores:  100,
			MaxFAQKeys: 50,
		},
		Knowledge: KnowledgeConfig{
			Dir: "~/.retailbot/knowledge",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}
