package natsclient

import (
	"testing"

	"github.com/sifan077/ResourceHub/config"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		cfg  config.NATSConfig
		want string
	}{
		{cfg: config.NATSConfig{}, want: "nats://localhost:4222"},
		{cfg: config.NATSConfig{Host: "bus", Port: 4333}, want: "nats://bus:4333"},
	}
	for _, tt := range tests {
		if got := buildURL(tt.cfg); got != tt.want {
			t.Errorf("buildURL(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestOptions_UserInfo(t *testing.T) {
	anon := options(config.NATSConfig{}, nil)
	withUser := options(config.NATSConfig{User: "app", Password: "secret"}, nil)

	if len(withUser) != len(anon)+1 {
		t.Fatalf("expected credentials option to be added, got %d vs %d", len(withUser), len(anon))
	}
}
