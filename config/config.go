// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig is the full configuration of the ai-voice-server process.
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogFile  string `mapstructure:"log_file"`

	// CRM control plane.
	CoveCRMBaseURL string `mapstructure:"covecrm_base_url" validate:"required"`
	DialerCronKey  string `mapstructure:"ai_dialer_cron_key" validate:"required"`
	DialerAgentKey string `mapstructure:"ai_dialer_agent_key" validate:"required"`

	// Realtime speech model.
	OpenAIAPIKey        string `mapstructure:"openai_api_key" validate:"required"`
	OpenAIRealtimeModel string `mapstructure:"openai_realtime_model" validate:"required"`

	// Billing coefficient for per-minute vendor usage reports.
	VendorCostPerMinUSD float64 `mapstructure:"ai_dialer_vendor_cost_per_min_usd"`
}

// InitConfig reads configuration from the environment (and an optional .env
// file pointed at by ENV_PATH) into a viper instance with defaults applied.
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env variables.")
	}

	// AI_VOICE_SERVER_PORT wins over the generic PORT when both are set.
	if p := vConfig.GetInt("AI_VOICE_SERVER_PORT"); p != 0 {
		vConfig.Set("PORT", p)
	}
	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "ai-voice-server")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 4000)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")

	v.SetDefault("COVECRM_BASE_URL", "")
	v.SetDefault("AI_DIALER_CRON_KEY", "")
	v.SetDefault("AI_DIALER_AGENT_KEY", "")

	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_REALTIME_MODEL", "gpt-4o-realtime-preview")

	v.SetDefault("AI_DIALER_VENDOR_COST_PER_MIN_USD", 0.0)
}

// GetApplicationConfig unmarshals and validates the AppConfig. Missing
// required values are a startup-fatal configuration error.
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(&config); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
