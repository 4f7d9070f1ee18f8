package config

const (
	_etc = "/usr/local/etc/sf-data-dictionary"
	_var = "/usr/local/var/sf-data-dictionary"

	DEFAULT_WORKDIR = _var
	DEFAULT_CONFIG  = _etc + "/sf-data-dictionary.yaml"
)
