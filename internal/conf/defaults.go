package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets the default values for each configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("main.name", "Sidekick")
	viper.SetDefault("main.debug", false)
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/sidekick.log")
	viper.SetDefault("main.log.maxsizemb", 100)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxagedays", 28)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.host", "0.0.0.0")
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)

	viper.SetDefault("upstream.url", "")
	viper.SetDefault("upstream.timeout", 0*time.Second)
	viper.SetDefault("upstream.debug", false)

	viper.SetDefault("notification.debug", false)
	viper.SetDefault("notification.maxnotifications", 1000)
	viper.SetDefault("notification.cleanupinterval", 5*time.Minute)
	viper.SetDefault("notification.toast.maxvisible", 3)
	viper.SetDefault("notification.toast.defaultduration", 5*time.Second)
	viper.SetDefault("notification.toast.dedupwindow", 2*time.Second)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:9090")
}
