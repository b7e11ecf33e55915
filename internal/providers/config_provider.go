package providers

import (
	"fmt"
	"path/filepath"
	"rankview/internal/structures"
	"strings"

	"github.com/spf13/viper"
)

const AppName = "RankView"

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.SetDefault("leaderboard.pageSize", 10)
	v.SetDefault("upstream.timeout", "5s")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("warmup.interval", "1m")

	v.BindEnv("logger.level", "RV_LOG_LEVEL")
	v.BindEnv("upstream.baseURL", "RV_UPSTREAM_URL")
	v.BindEnv("leaderboard.pageSize", "RV_PAGE_SIZE")
	v.BindEnv("cache.enabled", "RV_CACHE_ENABLED")
	v.BindEnv("cache.size", "RV_CACHE_SIZE")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = AppName
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
