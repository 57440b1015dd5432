package configs

import (
	"github.com/spf13/viper"

	"github.com/hubchat/server/internal/schemas"
)

// ICEConfig should be run after viper has read the config file. The
// endpoints are handed verbatim to call participants; the server never
// dials them.
func ICEConfig() schemas.ICEConfig {
	return schemas.ICEConfig{
		StunUrls:       viper.GetStringSlice("ice.stun_urls"),
		TurnUrls:       viper.GetStringSlice("ice.turn_urls"),
		TurnUsername:   viper.GetString("ice.turn_username"),
		TurnCredential: viper.GetString("ice.turn_credential"),
	}
}
