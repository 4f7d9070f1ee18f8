//go:build !linux && !darwin

package config

const (
	DEFAULT_WORKDIR = "."
	DEFAULT_CONFIG  = "sf-data-dictionary.yaml"
)
