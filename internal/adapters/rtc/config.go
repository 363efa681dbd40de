package rtc

import (
	"github.com/pion/webrtc/v4"
)

// Configuration is the peer connection config handed to clients. The relay
// never opens a peer connection itself.
func Configuration(urls []string) webrtc.Configuration {
	if len(urls) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: urls,
			},
		},
	}
}
