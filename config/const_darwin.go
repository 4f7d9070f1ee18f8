package config

const (
	_etc = "/usr/local/etc/com.github.sfdict/sf-data-dictionary"
	_var = "/usr/local/var/com.github.sfdict/sf-data-dictionary"

	DEFAULT_WORKDIR = _var
	DEFAULT_CONFIG  = _etc + "/sf-data-dictionary.yaml"
)
