// Package autoload initializes the global logger from the LOG_* environment
// on import.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/haneiva1/autoventas/pkg/logger"
)

func init() {
	var cfg logx.Config
	if err := envconfig.Process("LOG", &cfg); err != nil {
		cfg = *logx.DefaultConfig
	}
	logx.Init(cfg)
}
