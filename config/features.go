package config

import "os"

type Features struct {
	AuthEnabled            bool `yaml:"auth_enabled"`
	TriggerEndpointEnabled bool `yaml:"trigger_endpoint_enabled"`
	TestEmailEnabled       bool `yaml:"test_email_enabled"`
}

// DefaultFeatures matches what the worker has always exposed.
func DefaultFeatures() Features {
	return Features{
		AuthEnabled:            true,
		TriggerEndpointEnabled: true,
		TestEmailEnabled:       true,
	}
}

func (f *Features) applyEnv() {
	envFlag("AUTH_ENABLED", &f.AuthEnabled)
	envFlag("TRIGGER_ENDPOINT_ENABLED", &f.TriggerEndpointEnabled)
	envFlag("TEST_EMAIL_ENABLED", &f.TestEmailEnabled)
}

func envFlag(key string, dst *bool) {
	switch os.Getenv(key) {
	case "true":
		*dst = true
	case "false":
		*dst = false
	}
}
