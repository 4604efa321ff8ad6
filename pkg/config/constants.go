package config

const (
	// EnvPrefix namespaces every environment variable read by envconfig.
	EnvPrefix = "VENDORTAX"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VENDORTAX_DB_DSN"
	EnvDBHost = "VENDORTAX_DB_HOST"
	EnvDBUser = "VENDORTAX_DB_USER"
	EnvDBName = "VENDORTAX_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
