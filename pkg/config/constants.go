package config

const (
	// EnvPrefix is intentionally empty: every field carries its full
	// PROCUREHUB_ variable name in its envconfig tag.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
