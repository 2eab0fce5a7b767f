package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		bind:    "0.0.0.0",
		port:    8080,
		rounds:  5,
		prefix:  "",
		verbose: false,
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().validate())

	c := validConfig()
	c.port = 0
	assert.Error(t, c.validate())

	c = validConfig()
	c.port = 70000
	assert.Error(t, c.validate())

	c = validConfig()
	c.rounds = 0
	assert.Error(t, c.validate())

	c = validConfig()
	c.botDelay = -time.Second
	assert.Error(t, c.validate())

	c = validConfig()
	c.tlsCert = "cert.pem"
	assert.Error(t, c.validate(), "a cert without a key is incomplete")

	c.tlsKey = "key.pem"
	assert.NoError(t, c.validate())
}

func TestConfigScheme(t *testing.T) {
	c := validConfig()
	assert.Equal(t, "http", c.scheme())

	c.tlsCert = "cert.pem"
	c.tlsKey = "key.pem"
	assert.Equal(t, "https", c.scheme())
}
