// Package netaddr discovers the address tablets on the pharmacy LAN can reach.
package netaddr

import (
	"fmt"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/officine/bilan/internal/config"
)

const (
	// routeAddr is never contacted: connecting a UDP socket sends nothing but
	// makes the kernel pick the outbound interface.
	routeAddr = "10.254.254.254:1"
	loopback  = "127.0.0.1"
)

var dial = net.Dial

// LocalIP returns the LAN address of the outbound interface, or loopback when
// it cannot be determined.
func LocalIP() string {
	conn, err := dial("udp", routeAddr)
	if err != nil {
		log.Debug().Err(err).Msg("lan address discovery failed: using loopback")
		return loopback
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return loopback
	}
	return addr.IP.String()
}

// QuestionnaireBaseURL is the default URL encoded into QR payloads.
func QuestionnaireBaseURL(port int) string {
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(LocalIP(), fmt.Sprint(port)), config.QuestionnairePath)
}
