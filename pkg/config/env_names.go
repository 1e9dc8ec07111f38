package config

// EnvPrefix is the envconfig prefix shared by every PAYLIV_ variable.
const EnvPrefix = "payliv"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PAYLIV_DB_DSN"
	EnvDBHost = "PAYLIV_DB_HOST"
	EnvDBUser = "PAYLIV_DB_USER"
	EnvDBName = "PAYLIV_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
