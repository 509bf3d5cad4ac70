package config

// EnvPrefix namespaces every environment variable the loader reads.
const EnvPrefix = "GIFTDROP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
